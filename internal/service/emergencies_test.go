package service

import (
	"context"
	"errors"
	"testing"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/testutil"
)

func TestEmergencyLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	citizen := testutil.MustUser(t, e.db, model.RoleCitizen)
	first := testutil.MustUser(t, e.db, model.RoleOfficer)
	second := testutil.MustUser(t, e.db, model.RoleOfficer)
	retired := testutil.MustUser(t, e.db, model.RoleOfficer)
	admin := testutil.MustUser(t, e.db, model.RoleAdmin)
	if err := e.db.Model(&retired).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	em, err := e.emergencies.Create(ctx, principal(citizen), emergencyInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if em.Status != model.EmergencyReported || len(em.History) != 1 {
		t.Fatalf("unexpected new emergency %+v", em)
	}
	for _, u := range []model.User{first, second} {
		if got := e.notifications(t, u.ID); len(got) != 1 || got[0].Type != model.NotifyEmergencyReported {
			t.Fatalf("officer %d should be alerted, got %+v", u.ID, got)
		}
	}
	if got := e.notifications(t, retired.ID); len(got) != 0 {
		t.Fatalf("inactive officer alerted: %+v", got)
	}

	if _, err := e.emergencies.ChangeStatus(ctx, principal(first), em.ID, model.EmergencyDispatched, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skipping received: expected ErrInvalidTransition, got %v", err)
	}

	em, err = e.emergencies.ChangeStatus(ctx, principal(first), em.ID, model.EmergencyReceived, "")
	if err != nil {
		t.Fatalf("reported -> received: %v", err)
	}
	if em.RespondingOfficerID == nil || *em.RespondingOfficerID != first.ID {
		t.Fatalf("first officer should respond, got %v", em.RespondingOfficerID)
	}

	if _, err := e.emergencies.ChangeStatus(ctx, principal(second), em.ID, model.EmergencyDispatched, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other officer: expected ErrForbidden, got %v", err)
	}
	if _, err := e.emergencies.ChangeStatus(ctx, principal(first), em.ID, model.EmergencyResolved, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skipping dispatched: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := e.emergencies.ChangeStatus(ctx, principal(admin), em.ID, model.EmergencyDispatched, "unit 7"); err != nil {
		t.Fatalf("admin dispatch: %v", err)
	}
	em, err = e.emergencies.ChangeStatus(ctx, principal(first), em.ID, model.EmergencyResolved, "")
	if err != nil {
		t.Fatalf("dispatched -> resolved: %v", err)
	}
	if len(em.History) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(em.History))
	}
	if _, err := e.emergencies.ChangeStatus(ctx, principal(first), em.ID, model.EmergencyReceived, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolved is terminal, got %v", err)
	}

	var updates int
	for _, n := range e.notifications(t, citizen.ID) {
		if n.Type == model.NotifyEmergencyStatus {
			updates++
		}
	}
	if updates != 3 {
		t.Fatalf("citizen should get 3 status notices, got %d", updates)
	}
}

func TestEmergencyScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.MustUser(t, e.db, model.RoleCitizen)
	bob := testutil.MustUser(t, e.db, model.RoleCitizen)
	officer := testutil.MustUser(t, e.db, model.RoleOfficer)

	em, err := e.emergencies.Create(ctx, principal(alice), emergencyInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.emergencies.Get(ctx, principal(bob), em.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other citizen read: expected ErrNotFound, got %v", err)
	}
	if _, err := e.emergencies.ChangeStatus(ctx, principal(alice), em.ID, model.EmergencyReceived, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("citizen mutation: expected ErrForbidden, got %v", err)
	}
	if _, err := e.emergencies.Create(ctx, principal(officer), emergencyInput()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("officer create: expected ErrForbidden, got %v", err)
	}

	_, total, err := e.emergencies.List(ctx, principal(bob), EmergencyFilter{}, 1, 20)
	if err != nil || total != 0 {
		t.Fatalf("bob should see nothing, got %d (%v)", total, err)
	}
	_, total, err = e.emergencies.List(ctx, principal(officer), EmergencyFilter{Type: model.EmergencyFire}, 1, 20)
	if err != nil || total != 1 {
		t.Fatalf("officer should see the fire, got %d (%v)", total, err)
	}
	if _, _, err := e.emergencies.List(ctx, principal(officer), EmergencyFilter{Type: "flood"}, 1, 20); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown type: expected ErrValidation, got %v", err)
	}

	counts, err := e.emergencies.CountByStatus(ctx, principal(alice))
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[model.EmergencyReported] != 1 || len(counts) != len(model.EmergencyStatuses) {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCreateEmergencyValidation(t *testing.T) {
	e := newEnv(t)
	citizen := testutil.MustUser(t, e.db, model.RoleCitizen)

	in := emergencyInput()
	in.ContactNumber = "call me"
	if _, err := e.emergencies.Create(context.Background(), principal(citizen), in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
