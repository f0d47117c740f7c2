// Package session holds the authenticated session and its durable storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"taskflow/internal/service"
	"taskflow/internal/storage"
)

const (
	// TokenKey and UserKey are written together and cleared together.
	TokenKey = "token"
	UserKey  = "user"

	// otpEmailKey remembers where a signup code was sent, across invocations.
	otpEmailKey = "otp_email"

	// CookieTTL is how long the cookie copy of the session lives.
	CookieTTL = 7 * 24 * time.Hour
)

// ErrNoCredentials is returned by Token when no session is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// KV is the durable storage used for credentials. *storage.Store implements it.
type KV interface {
	Get(ctx context.Context, scope storage.Scope, key string) (string, bool, error)
	Put(ctx context.Context, entries ...storage.Entry) error
	Delete(ctx context.Context, keys ...storage.Key) error
}

// Credentials reads and writes the persisted session.
// The cookie scope is primary; the local scope is read only when the cookie
// copy is absent or incomplete.
type Credentials struct {
	kv  KV
	now func() time.Time
}

// NewCredentials returns a credential provider over kv.
func NewCredentials(kv KV) *Credentials {
	return &Credentials{kv: kv, now: time.Now}
}

// Load returns the stored session, or nil if none is stored.
func (c *Credentials) Load(ctx context.Context) (*service.Session, error) {
	for _, scope := range []storage.Scope{storage.Cookie, storage.Local} {
		sess, err := c.loadScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return nil, nil
}

func (c *Credentials) loadScope(ctx context.Context, scope storage.Scope) (*service.Session, error) {
	token, ok, err := c.kv.Get(ctx, scope, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s token: %w", scope, err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		return nil, nil
	}
	raw, ok, err := c.kv.Get(ctx, scope, UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s user: %w", scope, err)
	}
	if !ok {
		return nil, nil
	}
	var user service.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt user entry is treated as no session in this scope.
		return nil, nil
	}
	return &service.Session{User: user, Token: token}, nil
}

// CookieToken returns the token from the cookie scope only.
func (c *Credentials) CookieToken(ctx context.Context) (string, error) {
	token, _, err := c.kv.Get(ctx, storage.Cookie, TokenKey)
	return token, err
}

// Save writes token and user to both scopes in one transaction.
func (c *Credentials) Save(ctx context.Context, sess service.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	expires := c.now().Add(CookieTTL)
	return c.kv.Put(ctx,
		storage.Entry{Scope: storage.Cookie, Key: TokenKey, Value: sess.Token, Expires: expires},
		storage.Entry{Scope: storage.Cookie, Key: UserKey, Value: string(user), Expires: expires},
		storage.Entry{Scope: storage.Local, Key: TokenKey, Value: sess.Token},
		storage.Entry{Scope: storage.Local, Key: UserKey, Value: string(user)},
	)
}

// Clear deletes token and user from both scopes in one transaction.
func (c *Credentials) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx,
		storage.Key{Scope: storage.Cookie, Name: TokenKey},
		storage.Key{Scope: storage.Cookie, Name: UserKey},
		storage.Key{Scope: storage.Local, Name: TokenKey},
		storage.Key{Scope: storage.Local, Name: UserKey},
	)
}

// Token implements oauth2.TokenSource over the stored session.
func (c *Credentials) Token() (*oauth2.Token, error) {
	sess, err := c.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoCredentials
	}
	return &oauth2.Token{AccessToken: sess.Token, TokenType: "Bearer"}, nil
}

// PendingOTP returns the email a signup code was last sent to.
func (c *Credentials) PendingOTP(ctx context.Context) (string, error) {
	email, _, err := c.kv.Get(ctx, storage.Local, otpEmailKey)
	return email, err
}

func (c *Credentials) setPendingOTP(ctx context.Context, email string) error {
	return c.kv.Put(ctx, storage.Entry{Scope: storage.Local, Key: otpEmailKey, Value: email})
}

func (c *Credentials) clearPendingOTP(ctx context.Context) error {
	return c.kv.Delete(ctx, storage.Key{Scope: storage.Local, Name: otpEmailKey})
}
