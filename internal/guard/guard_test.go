package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskflow/internal/guard"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestDecide(t *testing.T) {
	live := signed(t, now.Add(time.Hour))
	expired := signed(t, now.Add(-time.Hour))

	tests := []struct {
		name     string
		req      guard.Request
		action   guard.Action
		location string
	}{
		{"login without token", guard.Request{Path: "/login"}, guard.Allow, ""},
		{"signup without token", guard.Request{Path: "/signup"}, guard.Allow, ""},
		{"login with opaque token", guard.Request{Path: "/login", Token: "tok"}, guard.Redirect, "/tasks"},
		{"signup with live jwt", guard.Request{Path: "/signup", Token: live}, guard.Redirect, "/tasks"},
		{"login with expired jwt", guard.Request{Path: "/login", Token: expired}, guard.Allow, ""},
		{"tasks without token", guard.Request{Path: "/tasks"}, guard.Redirect, "/login"},
		{"nested tasks without token", guard.Request{Path: "/tasks/42"}, guard.Redirect, "/login"},
		{"tasks with expired jwt", guard.Request{Path: "/tasks", Token: expired}, guard.Redirect, "/login"},
		{"tasks with token", guard.Request{Path: "/tasks", Token: "tok"}, guard.Allow, ""},
		{"tasks with bearer header", guard.Request{Path: "/tasks", Authorization: "Bearer abc"}, guard.Allow, ""},
		{"tasks with empty bearer", guard.Request{Path: "/tasks", Authorization: "Bearer "}, guard.Redirect, "/login"},
		{"login with bearer header", guard.Request{Path: "/login", Authorization: "Bearer abc"}, guard.Redirect, "/tasks"},
		{"unmatched path", guard.Request{Path: "/"}, guard.Allow, ""},
		{"lookalike path", guard.Request{Path: "/tasksx"}, guard.Allow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Now = now
			d := guard.Decide(tt.req)
			if d.Action != tt.action || d.Location != tt.location {
				t.Errorf("Decide(%+v) = %+v, want action %v location %q", tt.req, d, tt.action, tt.location)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := guard.Middleware(nil)(ok)

	t.Run("redirects anonymous task view", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("redirects signed-in login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: "tok"})
		h.ServeHTTP(rec, req)
		if loc := rec.Header().Get("Location"); loc != "/tasks" {
			t.Errorf("Location = %q, want /tasks", loc)
		}
	})

	t.Run("passes signed-in task view", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: "tok"})
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
	})
}
