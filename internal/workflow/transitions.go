// Package workflow holds the static status transition tables for reports and
// emergencies.
package workflow

import (
	"errors"
	"fmt"

	"github.com/civicdesk/api/internal/model"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

type machine struct {
	label    string
	valid    map[string]struct{}
	terminal map[string]struct{}
	next     map[string][]string
}

var reportMachine = machine{
	label: "report",
	valid: toSet(
		string(model.ReportSubmitted),
		string(model.ReportInProgress),
		string(model.ReportResolved),
		string(model.ReportRejected),
	),
	terminal: toSet(string(model.ReportResolved), string(model.ReportRejected)),
	next: map[string][]string{
		string(model.ReportSubmitted):  {string(model.ReportInProgress), string(model.ReportRejected)},
		string(model.ReportInProgress): {string(model.ReportResolved), string(model.ReportRejected)},
	},
}

var emergencyMachine = machine{
	label: "emergency",
	valid: toSet(
		string(model.EmergencyReported),
		string(model.EmergencyReceived),
		string(model.EmergencyDispatched),
		string(model.EmergencyResolved),
	),
	terminal: toSet(string(model.EmergencyResolved)),
	next: map[string][]string{
		string(model.EmergencyReported):   {string(model.EmergencyReceived)},
		string(model.EmergencyReceived):   {string(model.EmergencyDispatched)},
		string(model.EmergencyDispatched): {string(model.EmergencyResolved)},
	},
}

func (m machine) validate(from, to string) error {
	if _, ok := m.valid[from]; !ok {
		return fmt.Errorf("%w: %s status %q", ErrUnknownStatus, m.label, from)
	}
	if _, ok := m.valid[to]; !ok {
		return fmt.Errorf("%w: %s status %q", ErrUnknownStatus, m.label, to)
	}
	if _, ok := m.terminal[from]; ok {
		return fmt.Errorf("%w: %s is %s and cannot change", ErrInvalidTransition, m.label, from)
	}
	for _, allowed := range m.next[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, m.label, from, to)
}

// ValidateReportTransition returns nil when a report may move from -> to.
func ValidateReportTransition(from, to model.ReportStatus) error {
	return reportMachine.validate(string(from), string(to))
}

// CanTransitionReport is the boolean form of ValidateReportTransition.
func CanTransitionReport(from, to model.ReportStatus) bool {
	return ValidateReportTransition(from, to) == nil
}

// NextReportStatuses lists the statuses reachable in one step from the given one.
func NextReportStatuses(from model.ReportStatus) []model.ReportStatus {
	out := []model.ReportStatus{}
	for _, s := range reportMachine.next[string(from)] {
		out = append(out, model.ReportStatus(s))
	}
	return out
}

// IsReportTerminal reports whether no further transition is possible.
func IsReportTerminal(s model.ReportStatus) bool {
	_, ok := reportMachine.terminal[string(s)]
	return ok
}

// IsValidReportStatus reports whether s is one of the report statuses.
func IsValidReportStatus(s model.ReportStatus) bool {
	_, ok := reportMachine.valid[string(s)]
	return ok
}

// ValidateEmergencyTransition returns nil when an emergency may move from -> to.
// The lifecycle is linear so exactly one target is valid per status.
func ValidateEmergencyTransition(from, to model.EmergencyStatus) error {
	return emergencyMachine.validate(string(from), string(to))
}

func CanTransitionEmergency(from, to model.EmergencyStatus) bool {
	return ValidateEmergencyTransition(from, to) == nil
}

func NextEmergencyStatuses(from model.EmergencyStatus) []model.EmergencyStatus {
	out := []model.EmergencyStatus{}
	for _, s := range emergencyMachine.next[string(from)] {
		out = append(out, model.EmergencyStatus(s))
	}
	return out
}

func IsEmergencyTerminal(s model.EmergencyStatus) bool {
	_, ok := emergencyMachine.terminal[string(s)]
	return ok
}

func IsValidEmergencyStatus(s model.EmergencyStatus) bool {
	_, ok := emergencyMachine.valid[string(s)]
	return ok
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
