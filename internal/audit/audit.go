// Package audit checks stored reports and emergencies against their status
// history.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/workflow"
	"gorm.io/gorm"
)

// Issue types
const (
	IssueMissingHistory   = "missing_history"
	IssueBadInitial       = "bad_initial_status"
	IssueInvalidStep      = "invalid_transition"
	IssueOutOfOrder       = "out_of_order"
	IssueStatusMismatch   = "status_mismatch"
	IssueUnknownStatus    = "unknown_status"
	IssueMissingReason    = "missing_rejection_reason"
	IssueMissingResponder = "missing_responder"
)

type Issue struct {
	Entity  string `json:"entity"`
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// CheckReport returns every inconsistency between a report and its history.
func CheckReport(r model.Report) []Issue {
	issues := checkHistory(model.EntityReport, r.ID, string(r.Status), string(model.ReportSubmitted), r.History,
		func(s string) bool { return workflow.IsValidReportStatus(model.ReportStatus(s)) },
		func(from, to string) bool {
			return workflow.CanTransitionReport(model.ReportStatus(from), model.ReportStatus(to))
		})

	if r.Status == model.ReportRejected && strings.TrimSpace(r.RejectionReason) == "" {
		issues = append(issues, Issue{model.EntityReport, r.ID, IssueMissingReason, "rejected without a reason"})
	}
	return issues
}

// CheckEmergency returns every inconsistency between an emergency and its
// history.
func CheckEmergency(e model.Emergency) []Issue {
	issues := checkHistory(model.EntityEmergency, e.ID, string(e.Status), string(model.EmergencyReported), e.History,
		func(s string) bool { return workflow.IsValidEmergencyStatus(model.EmergencyStatus(s)) },
		func(from, to string) bool {
			return workflow.CanTransitionEmergency(model.EmergencyStatus(from), model.EmergencyStatus(to))
		})

	if e.Status != model.EmergencyReported && e.RespondingOfficerID == nil {
		issues = append(issues, Issue{model.EntityEmergency, e.ID, IssueMissingResponder,
			fmt.Sprintf("status %s without a responding officer", e.Status)})
	}
	return issues
}

func checkHistory(entity string, id int64, current, initial string, h model.StatusHistory, valid func(string) bool, allowed func(from, to string) bool) []Issue {
	var issues []Issue
	add := func(typ, format string, args ...interface{}) {
		issues = append(issues, Issue{Entity: entity, ID: id, Type: typ, Details: fmt.Sprintf(format, args...)})
	}

	if !valid(current) {
		add(IssueUnknownStatus, "current status %q", current)
	}
	if len(h) == 0 {
		add(IssueMissingHistory, "no history entries")
		return issues
	}
	if h[0].Status != initial {
		add(IssueBadInitial, "history starts at %q, want %q", h[0].Status, initial)
	}
	for i := 1; i < len(h); i++ {
		prev, next := h[i-1], h[i]
		if !allowed(prev.Status, next.Status) {
			add(IssueInvalidStep, "entry %d: %s -> %s", i, prev.Status, next.Status)
		}
		if next.Timestamp.Before(prev.Timestamp) {
			add(IssueOutOfOrder, "entry %d is older than entry %d", i, i-1)
		}
	}
	if last := h[len(h)-1]; last.Status != current {
		add(IssueStatusMismatch, "last history entry %q, current status %q", last.Status, current)
	}
	return issues
}

// Summary is the outcome of a full scan.
type Summary struct {
	Reports     int64   `json:"reports"`
	Emergencies int64   `json:"emergencies"`
	Issues      []Issue `json:"issues"`
}

// Scanner walks every report and emergency in batches and checks them on a
// pool of workers. Soft-deleted reports are included.
type Scanner struct {
	db         *gorm.DB
	workers    int
	batchSize  int
	OnProgress func(checked int64)
}

func NewScanner(db *gorm.DB, workers, batchSize int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 500
	}
	return &Scanner{db: db, workers: workers, batchSize: batchSize}
}

func (s *Scanner) Run(ctx context.Context) (*Summary, error) {
	jobs := make(chan func() []Issue, s.workers*10)
	issueChan := make(chan Issue, 1000)

	var checked int64
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				for _, issue := range job() {
					issueChan <- issue
				}
				n := atomic.AddInt64(&checked, 1)
				if s.OnProgress != nil && n%1000 == 0 {
					s.OnProgress(n)
				}
			}
		}()
	}

	summary := &Summary{}
	done := make(chan struct{})
	go func() {
		for issue := range issueChan {
			summary.Issues = append(summary.Issues, issue)
		}
		close(done)
	}()

	err := s.feed(ctx, jobs, summary)

	close(jobs)
	wg.Wait()
	close(issueChan)
	<-done

	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Scanner) feed(ctx context.Context, jobs chan<- func() []Issue, summary *Summary) error {
	for offset := 0; ; offset += s.batchSize {
		var reports []model.Report
		err := s.db.WithContext(ctx).Unscoped().Order("id ASC").Offset(offset).Limit(s.batchSize).Find(&reports).Error
		if err != nil {
			return fmt.Errorf("load reports: %w", err)
		}
		if len(reports) == 0 {
			break
		}
		for _, r := range reports {
			r := r
			jobs <- func() []Issue { return CheckReport(r) }
		}
		summary.Reports += int64(len(reports))
	}

	for offset := 0; ; offset += s.batchSize {
		var items []model.Emergency
		err := s.db.WithContext(ctx).Unscoped().Order("id ASC").Offset(offset).Limit(s.batchSize).Find(&items).Error
		if err != nil {
			return fmt.Errorf("load emergencies: %w", err)
		}
		if len(items) == 0 {
			break
		}
		for _, e := range items {
			e := e
			jobs <- func() []Issue { return CheckEmergency(e) }
		}
		summary.Emergencies += int64(len(items))
	}
	return nil
}
