package service

import (
	"context"
	"errors"
	"testing"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Register(ctx, RegisterInput{Email: " Jo@Example.org ", Password: "correct horse", Name: "Jo"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != model.RoleCitizen || u.Email != "jo@example.org" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := e.users.Register(ctx, RegisterInput{Email: "jo@example.org", Password: "another pass", Name: "Jo"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: expected ErrConflict, got %v", err)
	}
	if _, err := e.users.Register(ctx, RegisterInput{Email: "x@example.org", Password: "short", Name: "X"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password: expected ErrValidation, got %v", err)
	}

	if _, err := e.users.Authenticate(ctx, "jo@example.org", "wrong horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	logged, err := e.users.Authenticate(ctx, "JO@example.org", "correct horse")
	if err != nil || logged.ID != u.ID {
		t.Fatalf("login: %v", err)
	}

	pair, err := e.users.IssueTokens(ctx, logged)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := auth.ValidateAccessToken(pair.AccessToken, "test-secret")
	if err != nil || claims.UserID != u.ID || claims.Role != string(model.RoleCitizen) {
		t.Fatalf("access token claims %+v (%v)", claims, err)
	}
	if _, err := e.users.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := e.users.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := e.users.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked refresh: expected ErrUnauthorized, got %v", err)
	}
	if _, err := e.users.Refresh(ctx, "bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown refresh: expected ErrUnauthorized, got %v", err)
	}
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.MustUser(t, e.db, model.RoleAdmin)

	u, err := e.users.Register(ctx, RegisterInput{Email: "sam@example.org", Password: "correct horse", Name: "Sam"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := e.users.IssueTokens(ctx, u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := e.users.SetActive(ctx, principal(admin), u.ID, model.RoleOfficer, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("role mismatch: expected ErrNotFound, got %v", err)
	}
	if _, err := e.users.SetActive(ctx, principal(admin), u.ID, model.RoleCitizen, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.users.Authenticate(ctx, "sam@example.org", "correct horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("inactive login: expected ErrUnauthorized, got %v", err)
	}
	if _, err := e.users.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("inactive refresh: expected ErrUnauthorized, got %v", err)
	}
	if _, err := e.users.SetActive(ctx, principal(admin), admin.ID, "", false); !errors.Is(err, ErrValidation) {
		t.Fatalf("self deactivation: expected ErrValidation, got %v", err)
	}
}

func TestOfficerManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	roads := testutil.MustDepartment(t, e.db, "Roads")
	water := testutil.MustDepartment(t, e.db, "Water")
	admin := testutil.MustUser(t, e.db, model.RoleAdmin)
	citizen := testutil.MustUser(t, e.db, model.RoleCitizen)

	in := OfficerInput{Email: "lee@city.gov", Password: "badge-1234", Name: "Lee", DepartmentIDs: []int64{roads.ID}}
	if _, err := e.users.CreateOfficer(ctx, principal(citizen), in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("citizen creating officer: expected ErrForbidden, got %v", err)
	}
	bad := in
	bad.DepartmentIDs = []int64{roads.ID, 424242}
	if _, err := e.users.CreateOfficer(ctx, principal(admin), bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown department: expected ErrValidation, got %v", err)
	}

	officer, err := e.users.CreateOfficer(ctx, principal(admin), in)
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}
	p := principal(*officer)
	depts, err := e.departments.ForOfficer(ctx, p)
	if err != nil || len(depts) != 1 || depts[0].ID != roads.ID {
		t.Fatalf("officer departments %+v (%v)", depts, err)
	}

	officer, err = e.users.SetOfficerDepartments(ctx, principal(admin), officer.ID, []int64{water.ID, water.ID})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if ids := officer.DepartmentIDs(); len(ids) != 1 || ids[0] != water.ID {
		t.Fatalf("unexpected departments %v", ids)
	}
	depts, _ = e.departments.ForOfficer(ctx, p)
	if len(depts) != 1 || depts[0].ID != water.ID {
		t.Fatalf("scope should follow reassignment, got %+v", depts)
	}

	if _, err := e.users.SetOfficerDepartments(ctx, principal(admin), officer.ID, nil); err != nil {
		t.Fatalf("clear departments: %v", err)
	}
	depts, _ = e.departments.ForOfficer(ctx, p)
	if len(depts) != 0 {
		t.Fatalf("cleared officer still has %d departments", len(depts))
	}

	if _, err := e.users.SetOfficerDepartments(ctx, principal(admin), citizen.ID, []int64{roads.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("citizen as officer: expected ErrValidation, got %v", err)
	}

	officers, total, err := e.users.List(ctx, principal(admin), UserFilter{Role: model.RoleOfficer}, 1, 20)
	if err != nil || total != 1 || officers[0].Email != "lee@city.gov" {
		t.Fatalf("officer listing %+v total %d (%v)", officers, total, err)
	}
	if _, _, err := e.users.List(ctx, principal(admin), UserFilter{Role: "mayor"}, 1, 20); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown role: expected ErrValidation, got %v", err)
	}
}

func TestGoogleSignInLinksExistingAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	local, err := e.users.Register(ctx, RegisterInput{Email: "ana@example.org", Password: "correct horse", Name: "Ana"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	linked, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-1", Email: "Ana@example.org", VerifiedEmail: true, Name: "Ana G", Picture: "https://img/a.png"})
	if err != nil {
		t.Fatalf("google sign in: %v", err)
	}
	if linked.ID != local.ID {
		t.Fatalf("expected the local account to be linked")
	}

	fresh, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-2", Email: "new@example.org", VerifiedEmail: true, Name: "New"})
	if err != nil {
		t.Fatalf("google sign up: %v", err)
	}
	if fresh.Role != model.RoleCitizen || fresh.Provider != model.ProviderGoogle {
		t.Fatalf("unexpected google user %+v", fresh)
	}
	again, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-2", Email: "new@example.org", VerifiedEmail: true, Name: "New"})
	if err != nil || again.ID != fresh.ID {
		t.Fatalf("repeat sign in should find the same user: %v", err)
	}
}

func TestGoogleSignInRefusesUnsafeLinks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.MustUser(t, e.db, model.RoleAdmin)
	officer := testutil.MustUser(t, e.db, model.RoleOfficer)

	if _, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-x", Email: admin.Email}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unverified email: expected ErrUnauthorized, got %v", err)
	}
	if _, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-x", Email: "someone@example.org"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unverified new account: expected ErrUnauthorized, got %v", err)
	}
	for _, staff := range []model.User{admin, officer} {
		if _, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-x", Email: staff.Email, VerifiedEmail: true}); !errors.Is(err, ErrConflict) {
			t.Fatalf("%s account: expected ErrConflict, got %v", staff.Role, err)
		}
	}

	if _, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-a", Email: "bo@example.org", VerifiedEmail: true}); err != nil {
		t.Fatalf("google sign up: %v", err)
	}
	if _, err := e.users.GoogleSignIn(ctx, &auth.GoogleUserInfo{ID: "g-b", Email: "bo@example.org", VerifiedEmail: true}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second google identity: expected ErrConflict, got %v", err)
	}

	var n int64
	e.db.Model(&model.User{}).Where("provider_id = ?", "g-x").Count(&n)
	if n != 0 {
		t.Fatalf("no account should carry the rejected google id, found %d", n)
	}
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	citizen := testutil.MustUser(t, e.db, model.RoleCitizen)

	u, err := e.users.UpdateProfile(ctx, principal(citizen), ProfileInput{Name: " Kim ", Phone: "010-1234-5678"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Kim" || u.Phone != "010-1234-5678" {
		t.Fatalf("unexpected profile %+v", u)
	}
	if _, err := e.users.UpdateProfile(ctx, principal(citizen), ProfileInput{Name: "Kim", Phone: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad phone: expected ErrValidation, got %v", err)
	}
}
