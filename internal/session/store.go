package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"taskflow/internal/service"
)

// OTPState tracks the signup code across its lifecycle.
type OTPState int

const (
	OTPNotSent OTPState = iota
	OTPSent
	OTPConsumed
)

func (s OTPState) String() string {
	switch s {
	case OTPSent:
		return "sent"
	case OTPConsumed:
		return "consumed"
	default:
		return "not sent"
	}
}

// Fallback messages when the service gives none.
const (
	msgOTPFailed    = "OTP sending failed"
	msgSignupFailed = "Signup failed"
	msgLoginFailed  = "Login failed"
	msgLogoutFailed = "Logout failed"
)

// State is a copy of the store's observable state.
type State struct {
	Session *service.Session
	Loading bool
	Error   string
	OTP     OTPState
	// OTPEmail is where the pending code was sent.
	OTPEmail string
}

// Store is the auth session store. It is safe for concurrent use.
// Every operation both records a failure in State.Error and returns it.
type Store struct {
	creds *Credentials
	auth  service.AuthService
	log   *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a Store and hydrates it from durable storage.
// A storage read failure leaves the store signed out and is returned.
func New(ctx context.Context, creds *Credentials, auth service.AuthService, opts ...Option) (*Store, error) {
	s := &Store{
		creds: creds,
		auth:  auth,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}

	sess, err := creds.Load(ctx)
	if err != nil {
		return s, err
	}
	s.state.Session = sess

	email, err := creds.PendingOTP(ctx)
	if err != nil {
		return s, err
	}
	if email != "" {
		s.state.OTP = OTPSent
		s.state.OTPEmail = email
	}
	if sess != nil {
		s.log.Debug("session hydrated", "user", sess.User.ID)
	}
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Session != nil {
		cp := *st.Session
		st.Session = &cp
	}
	return st
}

// Session returns the current session, or nil.
func (s *Store) Session() *service.Session {
	return s.Snapshot().Session
}

// IsAuthenticated reports whether a session with a token is held.
func (s *Store) IsAuthenticated() bool {
	sess := s.Session()
	return sess != nil && sess.Token != ""
}

// ResetError clears Error and nothing else.
func (s *Store) ResetError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

// ResetOTP forgets a pending signup code.
func (s *Store) ResetOTP(ctx context.Context) error {
	s.mu.Lock()
	s.state.OTP = OTPNotSent
	s.state.OTPEmail = ""
	s.mu.Unlock()
	return s.creds.clearPendingOTP(ctx)
}

func (s *Store) begin() {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
}

// fail records err and ends the operation.
func (s *Store) fail(err error, fallback string) error {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Error = service.Message(err, fallback)
	s.mu.Unlock()
	return err
}

func (s *Store) done(update func(st *State)) {
	s.mu.Lock()
	s.state.Loading = false
	if update != nil {
		update(&s.state)
	}
	s.mu.Unlock()
}

// SendOTP requests a signup code for email. It does not create a session.
func (s *Store) SendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.fail(service.Validationf("email required"), msgOTPFailed)
	}

	s.begin()
	if _, err := s.auth.SendOTP(ctx, email); err != nil {
		s.log.Debug("send otp failed", "err", err)
		return s.fail(err, msgOTPFailed)
	}
	if err := s.creds.setPendingOTP(ctx, email); err != nil {
		return s.fail(err, msgOTPFailed)
	}
	s.done(func(st *State) {
		st.OTP = OTPSent
		st.OTPEmail = email
	})
	return nil
}

// Signup registers a user. A code must have been sent first.
func (s *Store) Signup(ctx context.Context, in service.SignupInput) error {
	if err := s.validateSignup(in); err != nil {
		return s.fail(err, msgSignupFailed)
	}

	s.begin()
	res, err := s.auth.Signup(ctx, in)
	if err != nil {
		s.log.Debug("signup failed", "err", err)
		return s.fail(err, msgSignupFailed)
	}
	sess, err := sessionFrom(res, msgSignupFailed)
	if err != nil {
		return s.fail(err, msgSignupFailed)
	}
	if err := s.adopt(ctx, sess); err != nil {
		return s.fail(err, msgSignupFailed)
	}
	// The session is already persisted; a stale marker only re-enables signup.
	_ = s.creds.clearPendingOTP(ctx)
	s.done(func(st *State) {
		st.OTP = OTPConsumed
		st.OTPEmail = ""
	})
	return nil
}

func (s *Store) validateSignup(in service.SignupInput) error {
	if s.Snapshot().OTP != OTPSent {
		return service.Validationf("send an OTP before signing up")
	}
	switch {
	case strings.TrimSpace(in.FirstName) == "":
		return service.Validationf("first name required")
	case strings.TrimSpace(in.Email) == "":
		return service.Validationf("email required")
	case in.Password == "":
		return service.Validationf("password required")
	case in.Password != in.ConfirmPassword:
		return service.Validationf("passwords do not match")
	case strings.TrimSpace(in.OTP) == "":
		return service.Validationf("otp required")
	}
	return nil
}

// Login exchanges credentials for a session. On failure any prior session
// is left untouched, in memory and in storage.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return s.fail(service.Validationf("email and password required"), msgLoginFailed)
	}

	s.begin()
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.log.Debug("login failed", "err", err)
		return s.fail(err, msgLoginFailed)
	}
	sess, err := sessionFrom(res, msgLoginFailed)
	if err != nil {
		return s.fail(err, msgLoginFailed)
	}
	if err := s.adopt(ctx, sess); err != nil {
		return s.fail(err, msgLoginFailed)
	}
	s.done(nil)
	return nil
}

// Logout clears the session from memory and storage. It succeeds when no
// session exists.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()
	s.mu.Lock()
	s.state.Session = nil
	s.mu.Unlock()

	if err := s.creds.Clear(ctx); err != nil {
		return s.fail(err, msgLogoutFailed)
	}
	s.done(nil)
	return nil
}

// adopt persists sess, then installs it in memory. Nothing changes if the
// write fails.
func (s *Store) adopt(ctx context.Context, sess service.Session) error {
	if err := s.creds.Save(ctx, sess); err != nil {
		return err
	}
	s.mu.Lock()
	s.state.Session = &sess
	s.mu.Unlock()
	s.log.Debug("session adopted", "user", sess.User.ID)
	return nil
}

// sessionFrom validates an auth response. Token and user must both be present.
func sessionFrom(res service.AuthResult, fallback string) (service.Session, error) {
	if res.Token == "" || res.User == nil {
		msg := res.Message
		if msg == "" {
			msg = fallback
		}
		return service.Session{}, &service.Error{Kind: service.KindAuth, Message: msg}
	}
	user := *res.User
	if user.ID == "" {
		user.ID = Subject(res.Token)
	}
	return service.Session{User: user, Token: res.Token}, nil
}
