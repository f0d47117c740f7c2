package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"taskflow/internal/service"
)

// APIServer serves the task REST API from a FakeService.
// Task routes require a bearer token issued by the fake (see TokenFor).
type APIServer struct {
	*httptest.Server
	Svc *FakeService

	mu       sync.Mutex
	requests []string
}

// NewAPIServer starts a server that is closed when the test ends.
func NewAPIServer(t *testing.T, svc *FakeService) *APIServer {
	t.Helper()
	s := &APIServer{Svc: svc}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Requests returns "METHOD /path" for every request served, in order.
func (s *APIServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()
	svc := s.Svc

	mux.HandleFunc("POST /api/v1/auth/sendotp", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.SendOTP(r.Context(), in.Email)
		reply(w, v, err)
	})
	mux.HandleFunc("POST /api/v1/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var in service.SignupInput
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Signup(r.Context(), in)
		reply(w, v, err)
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Login(r.Context(), in.Email, in.Password)
		reply(w, v, err)
	})

	mux.HandleFunc("GET /api/v1/tasks/search", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Search(r.Context(), r.URL.Query().Get("query"))
		reply(w, v, err)
	}))
	mux.HandleFunc("GET /api/v1/tasks/task/{id}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.GetByID(r.Context(), r.PathValue("id"))
		reply(w, v, err)
	}))
	mux.HandleFunc("GET /api/v1/tasks/pending/{user}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.ListPending(r.Context(), r.PathValue("user"))
		reply(w, v, err)
	}))
	mux.HandleFunc("GET /api/v1/tasks/completed/{user}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.ListCompleted(r.Context(), r.PathValue("user"))
		reply(w, v, err)
	}))
	mux.HandleFunc("GET /api/v1/tasks/{user}/category/{category}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.ListByCategory(r.Context(), r.PathValue("user"), service.Category(r.PathValue("category")))
		reply(w, v, err)
	}))
	mux.HandleFunc("GET /api/v1/tasks/{user}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.List(r.Context(), r.PathValue("user"))
		reply(w, v, err)
	}))
	mux.HandleFunc("POST /api/v1/tasks", s.authed(func(w http.ResponseWriter, r *http.Request) {
		var in service.TaskInput
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Create(r.Context(), in)
		reply(w, v, err)
	}))
	mux.HandleFunc("PUT /api/v1/tasks/status/{id}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Status service.Status `json:"status"`
		}
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.ToggleStatus(r.Context(), r.PathValue("id"), in.Status)
		reply(w, v, err)
	}))
	mux.HandleFunc("PUT /api/v1/tasks/{id}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		var in service.TaskPatch
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Update(r.Context(), r.PathValue("id"), in)
		reply(w, v, err)
	}))
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Delete(r.Context(), r.PathValue("id"))
		reply(w, v, err)
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (s *APIServer) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !strings.HasPrefix(tok, "tok-") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token is missing"})
			return
		}
		h(w, r)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return false
	}
	return true
}

// reply writes a result or maps a *service.Error to its status code.
func reply(w http.ResponseWriter, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	status := http.StatusInternalServerError
	body := map[string]any{"success": false, "message": err.Error()}
	var e *service.Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			status = e.Status
		}
		if e.Message == "" {
			delete(body, "message")
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
