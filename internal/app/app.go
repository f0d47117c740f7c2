// Package app wires the per-invocation runtime: storage, credentials,
// the API client, and the two state stores. Commands receive a *Runtime
// instead of reaching for globals.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"taskflow/internal/backend/restapi"
	"taskflow/internal/collection"
	"taskflow/internal/config"
	"taskflow/internal/gateway"
	"taskflow/internal/service"
	"taskflow/internal/session"
	"taskflow/internal/storage"
)

// Runtime holds everything a command needs for one invocation.
type Runtime struct {
	Config  *config.Config
	Log     *slog.Logger
	Storage *storage.Store
	Creds   *session.Credentials
	API     service.Service
	Session *session.Store
	Tasks   *collection.State
}

// Option configures New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	log        *slog.Logger
}

// WithHTTPClient sets the client used by the gateway.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewLogger returns a text logger on w at debug level when debug is set,
// and a discarding logger otherwise.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// New opens storage under cfg.Dir and builds the runtime. The session store
// is hydrated from storage before New returns.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = NewLogger(io.Discard, false)
	}

	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	st, err := storage.Open(ctx, cfg.StatePath())
	if err != nil {
		return nil, err
	}
	if id, err := st.InstallID(ctx); err == nil {
		o.log.Debug("storage opened", "path", cfg.StatePath(), "install_id", id)
	}

	creds := session.NewCredentials(st)
	gwOpts := []gateway.Option{gateway.WithLogger(o.log)}
	if o.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(o.httpClient))
	}
	if cfg.Timeout > 0 {
		gwOpts = append(gwOpts, gateway.WithTimeout(cfg.Timeout))
	}
	gw, err := gateway.New(cfg.BaseURL, creds, gwOpts...)
	if err != nil {
		st.Close()
		return nil, err
	}
	api := restapi.New(gw)

	sess, err := session.New(ctx, creds, api, session.WithLogger(o.log))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return &Runtime{
		Config:  cfg,
		Log:     o.log,
		Storage: st,
		Creds:   creds,
		API:     api,
		Session: sess,
		Tasks:   collection.New(api, o.log),
	}, nil
}

// Owner returns the signed-in user's id, or an auth error when signed out.
func (r *Runtime) Owner() (string, error) {
	sess := r.Session.Session()
	if sess == nil || sess.Token == "" {
		return "", &service.Error{Kind: service.KindAuth, Message: "not logged in"}
	}
	if sess.User.ID == "" {
		return "", &service.Error{Kind: service.KindAuth, Message: "session has no user id"}
	}
	return sess.User.ID, nil
}

// Close cancels in-flight list loads and releases storage.
func (r *Runtime) Close() error {
	r.Tasks.Cancel()
	return r.Storage.Close()
}
