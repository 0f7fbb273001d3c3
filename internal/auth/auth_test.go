package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("k1")
	tok, err := a.IssueJWT("ana", "student")
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Sub != "ana" || c.Role != "student" || c.Issuer != "quizd" {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := NewAuthService("other").Parse(tok); err == nil {
		t.Fatal("token accepted under a different secret")
	}
	if _, err := a.Parse(tok + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("k1")
	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer = %d", rec.Code)
	}

	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", rec.Code)
	}

	tok, _ := a.IssueJWT("t1", "teacher")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || sub != "t1" || role != "teacher" {
		t.Fatalf("code=%d sub=%q role=%q", rec.Code, sub, role)
	}
}

func TestIdentity(t *testing.T) {
	var id Identity
	if _, err := id.CurrentUserID(context.Background()); err != ErrNoSubject {
		t.Fatalf("anonymous err = %v", err)
	}
	cases := []struct {
		role       string
		instructor bool
	}{
		{"student", false},
		{"teacher", true},
		{"admin", true},
		{"", false},
	}
	for _, tc := range cases {
		ctx := rbac.WithRole(WithSubject(context.Background(), "u"), tc.role)
		if uid, err := id.CurrentUserID(ctx); err != nil || uid != "u" {
			t.Fatalf("CurrentUserID = %q, %v", uid, err)
		}
		if got := id.IsInstructor(ctx); got != tc.instructor {
			t.Errorf("IsInstructor(%q) = %v", tc.role, got)
		}
	}
}
