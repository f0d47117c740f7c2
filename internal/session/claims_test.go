package session_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"taskflow/internal/session"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"id claim", sign(t, jwt.MapClaims{"id": "u1"}), "u1"},
		{"sub claim", sign(t, jwt.MapClaims{"sub": "u2"}), "u2"},
		{"no user claim", sign(t, jwt.MapClaims{"email": "a@b.com"}), ""},
		{"opaque", "opaque", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := session.Subject(tt.token); got != tt.want {
				t.Errorf("Subject = %q, want %q", got, tt.want)
			}
		})
	}
}
