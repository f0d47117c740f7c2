// Package guard decides whether a navigation is allowed given session presence.
//
// Decide is pure: it reads only its Request. Adapters that perform the
// redirect live next to it (Middleware for net/http, the CLI dispatcher for
// commands).
package guard

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Paths known to the guard.
const (
	LoginPath  = "/login"
	SignupPath = "/signup"
	TasksPath  = "/tasks"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// Action is the outcome of a guard check.
type Action int

const (
	// Allow lets the navigation proceed unchanged.
	Allow Action = iota
	// Redirect sends the navigation to Decision.Location.
	Redirect
)

// Decision is the result of Decide.
type Decision struct {
	Action   Action
	Location string
}

// Request is what the guard inspects.
type Request struct {
	Path string
	// Token is the persisted session token, empty if none.
	Token string
	// Authorization is the raw Authorization header, if any.
	Authorization string
	// Now is used for token expiry. Zero means time.Now().
	Now time.Time
}

// IsPublic reports whether path is a public entry point.
func IsPublic(path string) bool {
	return path == LoginPath || path == SignupPath
}

// Matches reports whether the guard applies to path at all.
func Matches(path string) bool {
	return IsPublic(path) || path == TasksPath || strings.HasPrefix(path, TasksPath+"/")
}

// Decide returns the navigation decision for req.
func Decide(req Request) Decision {
	if !Matches(req.Path) {
		return Decision{Action: Allow}
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	authed := ValidToken(req.Token, now) || hasBearer(req.Authorization)

	switch {
	case IsPublic(req.Path) && authed:
		return Decision{Action: Redirect, Location: TasksPath}
	case !IsPublic(req.Path) && !authed:
		return Decision{Action: Redirect, Location: LoginPath}
	}
	return Decision{Action: Allow}
}

// ValidToken reports whether token is usable at now. Opaque tokens are valid
// by presence; a token that parses as a JWT must not be past its exp claim.
func ValidToken(token string, now time.Time) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	return exp == nil || exp.After(now)
}

func hasBearer(header string) bool {
	return strings.HasPrefix(header, "Bearer ") && strings.TrimSpace(header[len("Bearer "):]) != ""
}

// Middleware redirects guarded requests. token extracts the persisted token
// from the request; nil reads the session cookie.
func Middleware(token func(r *http.Request) string) func(http.Handler) http.Handler {
	if token == nil {
		token = CookieToken
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(Request{
				Path:          r.URL.Path,
				Token:         token(r),
				Authorization: r.Header.Get("Authorization"),
			})
			if d.Action == Redirect {
				http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CookieToken reads the session cookie from r.
func CookieToken(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
