package workflow

import (
	"errors"
	"testing"

	"github.com/civicdesk/api/internal/model"
)

func TestReportTransitionTable(t *testing.T) {
	allowed := map[[2]model.ReportStatus]bool{
		{model.ReportSubmitted, model.ReportInProgress}: true,
		{model.ReportSubmitted, model.ReportRejected}:   true,
		{model.ReportInProgress, model.ReportResolved}:  true,
		{model.ReportInProgress, model.ReportRejected}:  true,
	}

	for _, from := range model.ReportStatuses {
		for _, to := range model.ReportStatuses {
			want := allowed[[2]model.ReportStatus{from, to}]
			err := ValidateReportTransition(from, to)
			if want && err != nil {
				t.Fatalf("%s -> %s should be allowed, got %v", from, to, err)
			}
			if !want {
				if err == nil {
					t.Fatalf("%s -> %s should be rejected", from, to)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
				}
			}
			if CanTransitionReport(from, to) != want {
				t.Fatalf("CanTransitionReport(%s, %s) disagrees with table", from, to)
			}
		}
	}
}

func TestReportExamples(t *testing.T) {
	if err := ValidateReportTransition(model.ReportSubmitted, model.ReportInProgress); err != nil {
		t.Fatalf("submitted -> in_progress: %v", err)
	}
	if err := ValidateReportTransition(model.ReportInProgress, model.ReportSubmitted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("in_progress -> submitted should fail, got %v", err)
	}
	for _, to := range model.ReportStatuses {
		if CanTransitionReport(model.ReportResolved, to) {
			t.Fatalf("resolved -> %s must fail", to)
		}
		if CanTransitionReport(model.ReportRejected, to) {
			t.Fatalf("rejected -> %s must fail", to)
		}
	}
}

func TestReportUnknownStatus(t *testing.T) {
	err := ValidateReportTransition(model.ReportSubmitted, "archived")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
	err = ValidateReportTransition("draft", model.ReportInProgress)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus for from, got %v", err)
	}
	if IsValidReportStatus("archived") {
		t.Fatalf("archived is not a report status")
	}
}

func TestNextReportStatuses(t *testing.T) {
	next := NextReportStatuses(model.ReportSubmitted)
	if len(next) != 2 || next[0] != model.ReportInProgress || next[1] != model.ReportRejected {
		t.Fatalf("unexpected next statuses: %v", next)
	}
	if got := NextReportStatuses(model.ReportResolved); len(got) != 0 {
		t.Fatalf("terminal status should have no successors, got %v", got)
	}
	if !IsReportTerminal(model.ReportRejected) || IsReportTerminal(model.ReportInProgress) {
		t.Fatalf("terminal classification wrong")
	}
}

func TestEmergencyLinearLifecycle(t *testing.T) {
	order := model.EmergencyStatuses
	for i, from := range order {
		for j, to := range order {
			want := j == i+1
			if got := CanTransitionEmergency(from, to); got != want {
				t.Fatalf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
	}
	if err := ValidateEmergencyTransition(model.EmergencyReported, model.EmergencyDispatched); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skipping a step should be invalid, got %v", err)
	}
	if !IsEmergencyTerminal(model.EmergencyResolved) {
		t.Fatalf("resolved emergencies are terminal")
	}
	if next := NextEmergencyStatuses(model.EmergencyReceived); len(next) != 1 || next[0] != model.EmergencyDispatched {
		t.Fatalf("unexpected next for received: %v", next)
	}
}
