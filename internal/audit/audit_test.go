package audit

import (
	"context"
	"testing"
	"time"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/testutil"
)

func entry(status string, at time.Time) model.HistoryEntry {
	return model.HistoryEntry{Status: status, Timestamp: at, UpdatedBy: 1}
}

func types(issues []Issue) map[string]bool {
	out := map[string]bool{}
	for _, i := range issues {
		out[i.Type] = true
	}
	return out
}

func TestCheckReport(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		report model.Report
		want   []string
	}{
		{
			name: "consistent",
			report: model.Report{Status: model.ReportResolved, History: model.StatusHistory{
				entry("submitted", t0), entry("in_progress", t0.Add(time.Hour)), entry("resolved", t0.Add(2*time.Hour)),
			}},
		},
		{
			name:   "no history",
			report: model.Report{Status: model.ReportSubmitted},
			want:   []string{IssueMissingHistory},
		},
		{
			name: "skipped step and mismatch",
			report: model.Report{Status: model.ReportInProgress, History: model.StatusHistory{
				entry("in_progress", t0), entry("submitted", t0.Add(time.Hour)),
			}},
			want: []string{IssueBadInitial, IssueInvalidStep, IssueStatusMismatch},
		},
		{
			name: "clock went backwards",
			report: model.Report{Status: model.ReportInProgress, History: model.StatusHistory{
				entry("submitted", t0), entry("in_progress", t0.Add(-time.Minute)),
			}},
			want: []string{IssueOutOfOrder},
		},
		{
			name: "rejected without reason",
			report: model.Report{Status: model.ReportRejected, History: model.StatusHistory{
				entry("submitted", t0), entry("rejected", t0.Add(time.Hour)),
			}},
			want: []string{IssueMissingReason},
		},
		{
			name:   "unknown status",
			report: model.Report{Status: "archived", History: model.StatusHistory{entry("submitted", t0)}},
			want:   []string{IssueUnknownStatus, IssueStatusMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckReport(tt.report)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d issues %+v, want %v", len(got), got, tt.want)
			}
			found := types(got)
			for _, w := range tt.want {
				if !found[w] {
					t.Errorf("missing issue %s in %+v", w, got)
				}
			}
		})
	}
}

func TestCheckEmergency(t *testing.T) {
	t0 := time.Now()
	officer := int64(4)

	ok := model.Emergency{Status: model.EmergencyDispatched, RespondingOfficerID: &officer, History: model.StatusHistory{
		entry("reported", t0), entry("received", t0), entry("dispatched", t0),
	}}
	if got := CheckEmergency(ok); len(got) != 0 {
		t.Fatalf("unexpected issues %+v", got)
	}

	skipped := model.Emergency{Status: model.EmergencyDispatched, History: model.StatusHistory{
		entry("reported", t0), entry("dispatched", t0),
	}}
	found := types(CheckEmergency(skipped))
	if !found[IssueInvalidStep] || !found[IssueMissingResponder] {
		t.Fatalf("expected skipped step and missing responder, got %v", found)
	}
}

func TestScannerRun(t *testing.T) {
	db := testutil.NewDB(t)
	dept := testutil.MustDepartment(t, db, "Roads")
	citizen := testutil.MustUser(t, db, model.RoleCitizen)
	now := time.Now()

	for i := 0; i < 7; i++ {
		r := model.Report{
			Title:        "Broken light",
			Status:       model.ReportSubmitted,
			DepartmentID: dept.ID,
			CitizenID:    citizen.ID,
			History:      model.StatusHistory{entry("submitted", now)},
		}
		if i == 3 {
			r.Status = model.ReportResolved
		}
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("create report: %v", err)
		}
	}
	em := model.Emergency{
		Type:          model.EmergencyFire,
		Status:        model.EmergencyReported,
		ContactNumber: "010-1234-5678",
		CitizenID:     citizen.ID,
		History:       model.StatusHistory{entry("reported", now)},
	}
	if err := db.Create(&em).Error; err != nil {
		t.Fatalf("create emergency: %v", err)
	}

	summary, err := NewScanner(db, 3, 2).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Reports != 7 || summary.Emergencies != 1 {
		t.Fatalf("scanned %d reports and %d emergencies", summary.Reports, summary.Emergencies)
	}
	if len(summary.Issues) != 1 || summary.Issues[0].Type != IssueStatusMismatch {
		t.Fatalf("unexpected issues %+v", summary.Issues)
	}
}
