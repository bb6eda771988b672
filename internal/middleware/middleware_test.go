package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/ratelimit"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

const secret = "middleware-secret"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID, "role": p.Role})
	})
	r.GET("/whoami", handlers...)
	return r
}

func call(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, id int64, role model.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(&model.User{ID: id, Email: "u@example.org", Role: role}, secret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret, nil))

	if w := call(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status %d", w.Code)
	}
	if w := call(r, "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", w.Code)
	}
	if w := call(r, tokenFor(t, 7, "mayor")); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown role: status %d", w.Code)
	}

	w := call(r, tokenFor(t, 7, model.RoleOfficer))
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: status %d (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"role":"officer","userId":7}` {
		t.Fatalf("principal not stored: %s", w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := newRouter(AuthMiddleware(secret, nil), RequireRole(model.RoleOfficer, model.RoleAdmin))

	tests := []struct {
		role model.Role
		want int
	}{
		{model.RoleCitizen, http.StatusForbidden},
		{model.RoleOfficer, http.StatusOK},
		{model.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		if w := call(r, tokenFor(t, 1, tt.role)); w.Code != tt.want {
			t.Errorf("%s: status %d, want %d", tt.role, w.Code, tt.want)
		}
	}

	bare := newRouter(RequireRole(model.RoleAdmin))
	if w := call(bare, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("without principal: status %d", w.Code)
	}
}

type accounts map[int64]*model.User

func (a accounts) Get(_ context.Context, id int64) (*model.User, error) {
	u, ok := a[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	if u == nil {
		return nil, errors.New("connection refused")
	}
	return u, nil
}

func TestAuthMiddlewareChecksStaffAccounts(t *testing.T) {
	r := newRouter(AuthMiddleware(secret, accounts{
		1: {ID: 1, Role: model.RoleOfficer, Active: true},
		2: {ID: 2, Role: model.RoleOfficer, Active: false},
		3: {ID: 3, Role: model.RoleCitizen, Active: true},
		4: nil,
	}), RequireRole(model.RoleOfficer, model.RoleAdmin))

	tests := []struct {
		name string
		id   int64
		role model.Role
		want int
	}{
		{"active officer", 1, model.RoleOfficer, http.StatusOK},
		{"deactivated officer", 2, model.RoleOfficer, http.StatusUnauthorized},
		{"demoted to citizen", 3, model.RoleAdmin, http.StatusForbidden},
		{"deleted account", 9, model.RoleAdmin, http.StatusUnauthorized},
		{"lookup failure", 4, model.RoleOfficer, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if w := call(r, tokenFor(t, tt.id, tt.role)); w.Code != tt.want {
			t.Errorf("%s: status %d, want %d (%s)", tt.name, w.Code, tt.want, w.Body.String())
		}
	}

	// citizens are not looked up
	citizens := newRouter(AuthMiddleware(secret, accounts{}))
	if w := call(citizens, tokenFor(t, 42, model.RoleCitizen)); w.Code != http.StatusOK {
		t.Fatalf("citizen: status %d", w.Code)
	}
}

type stubCounter struct {
	count int64
	err   error
}

func (s *stubCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.count++
	return s.count, nil
}

func (s *stubCounter) TTL(context.Context, string) (time.Duration, error) {
	return 30 * time.Minute, nil
}

func TestRateLimit(t *testing.T) {
	limits := ratelimit.DefaultLimits(2, 1)
	tok := tokenFor(t, 3, model.RoleCitizen)

	r := newRouter(AuthMiddleware(secret, nil), RateLimit(ratelimit.NewLimiter(&stubCounter{}, limits), ratelimit.ActionReportCreate))
	for i := 0; i < 2; i++ {
		if w := call(r, tok); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, w.Code)
		}
	}
	w := call(r, tok)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "2" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected headers %v", w.Header())
	}

	failing := newRouter(AuthMiddleware(secret, nil), RateLimit(ratelimit.NewLimiter(&stubCounter{err: errors.New("redis down")}, limits), ratelimit.ActionReportCreate))
	if w := call(failing, tok); w.Code != http.StatusOK {
		t.Fatalf("storage failure should fail open, got %d", w.Code)
	}

	disabled := newRouter(AuthMiddleware(secret, nil), RateLimit(nil, ratelimit.ActionReportCreate))
	if w := call(disabled, tok); w.Code != http.StatusOK {
		t.Fatalf("nil limiter should pass, got %d", w.Code)
	}
}
