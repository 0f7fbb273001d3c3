package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", PermAttemptSubmit, true},
		{"student", PermAttemptViewAll, false},
		{"student", PermAttemptGrade, false},
		{"student", PermQuizCreate, false},
		{"teacher", PermAttemptGrade, true},
		{"teacher", PermAttemptViewAll, true},
		{"teacher", PermQuizCreate, true},
		{"admin", "anything:at-all", true},
		{"guest", PermQuizView, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("student", PermAttemptViewAll, PermAttemptViewOwn) {
		t.Error("Any should accept view-own")
	}
}

func TestCheckerWildcardStopsAtResource(t *testing.T) {
	c := NewChecker(map[string][]string{"proctor": {"attempt:*"}})
	cases := map[string]bool{
		PermAttemptGrade:   true,
		PermAttemptViewAll: true,
		"attempts:grade":   false,
		"attempt":          false,
		"attempt:":         false,
		PermQuizView:       false,
	}
	for perm, want := range cases {
		if got := c.Has("proctor", perm); got != want {
			t.Errorf("Has(proctor, %s) = %v, want %v", perm, got, want)
		}
	}
	if c.Has("nobody", PermQuizView) {
		t.Error("unknown role granted a permission")
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Require(PermAttemptGrade)(ok)
	for role, want := range map[string]int{"teacher": 200, "student": 403, "": 403} {
		req := httptest.NewRequest("POST", "/", nil)
		req = req.WithContext(WithRole(context.Background(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: code %d, want %d", role, rec.Code, want)
		}
	}
}
