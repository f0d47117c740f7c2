// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskflow/internal/service"
)

// ErrInvalidCredentials is what the fake returns for a bad login.
var ErrInvalidCredentials = &service.Error{Kind: service.KindAuth, Message: "Invalid credentials", Status: 401}

// ErrTaskNotFound is what the fake returns for a missing task id.
var ErrTaskNotFound = &service.Error{Kind: service.KindNotFound, Message: "Task not found", Status: 404}

type fakeUser struct {
	user     service.User
	password string
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	users  map[string]fakeUser // email -> user
	otps   map[string]string   // email -> code
	tasks  []service.Task
	nextID int
	clock  time.Time

	// Error injection for testing
	SendOTPErr  error
	SignupErr   error
	LoginErr    error
	ListErr     error
	GetErr      error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error
	ToggleErr   error
	SearchErr   error
	CategoryErr error

	// OTPCode is the code issued by SendOTP.
	OTPCode string
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users:   make(map[string]fakeUser),
		otps:    make(map[string]string),
		clock:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		OTPCode: "123456",
	}
}

// TokenFor returns the token the fake issues for a user id.
func TokenFor(userID string) string {
	return "tok-" + userID
}

// AddUser registers a user that can log in with password.
func (f *FakeService) AddUser(user service.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[strings.ToLower(user.Email)] = fakeUser{user: user, password: password}
}

// AddTask adds a task and returns it.
func (f *FakeService) AddTask(owner, id, title string, category service.Category, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        id,
		Title:     title,
		Category:  category,
		Status:    status,
		Owner:     owner,
		CreatedAt: f.tick(),
	}
	t.UpdatedAt = t.CreatedAt
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns a copy of all stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// PendingOTP returns the code last issued to email.
func (f *FakeService) PendingOTP(email string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.otps[strings.ToLower(email)]
}

func (f *FakeService) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

// SendOTP implements service.AuthService.
func (f *FakeService) SendOTP(ctx context.Context, email string) (service.AuthResult, error) {
	if f.SendOTPErr != nil {
		return service.AuthResult{}, f.SendOTPErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[strings.ToLower(email)] = f.OTPCode
	return service.AuthResult{Success: true, Message: "OTP sent successfully"}, nil
}

// Signup implements service.AuthService.
func (f *FakeService) Signup(ctx context.Context, in service.SignupInput) (service.AuthResult, error) {
	if f.SignupErr != nil {
		return service.AuthResult{}, f.SignupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(in.Email)
	if _, exists := f.users[key]; exists {
		return service.AuthResult{}, &service.Error{Kind: service.KindValidation, Message: "User already exists", Status: 400}
	}
	if code, ok := f.otps[key]; !ok || code != in.OTP {
		return service.AuthResult{}, &service.Error{Kind: service.KindValidation, Message: "Invalid OTP", Status: 400}
	}
	delete(f.otps, key)

	f.nextID++
	user := service.User{
		ID:        fmt.Sprintf("u%d", f.nextID),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	f.users[key] = fakeUser{user: user, password: in.Password}
	return service.AuthResult{Success: true, User: &user, Token: TokenFor(user.ID)}, nil
}

// Login implements service.AuthService.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	u, ok := f.users[strings.ToLower(email)]
	if !ok || u.password != password {
		return service.AuthResult{}, ErrInvalidCredentials
	}
	user := u.user
	return service.AuthResult{Success: true, User: &user, Token: TokenFor(user.ID)}, nil
}

func (f *FakeService) filter(keep func(service.Task) bool) []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []service.Task{}
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// List implements service.TaskService.
func (f *FakeService) List(ctx context.Context, ownerID string) (service.Envelope, error) {
	if f.ListErr != nil {
		return service.Envelope{}, f.ListErr
	}
	return service.Envelope{Tasks: f.filter(func(t service.Task) bool {
		return t.Owner == ownerID
	})}, nil
}

// GetByID implements service.TaskService.
func (f *FakeService) GetByID(ctx context.Context, taskID string) (service.Envelope, error) {
	if f.GetErr != nil {
		return service.Envelope{}, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.index(taskID)
	if i < 0 {
		return service.Envelope{}, ErrTaskNotFound
	}
	t := f.tasks[i]
	return service.Envelope{Task: &t}, nil
}

// Create implements service.TaskService.
func (f *FakeService) Create(ctx context.Context, in service.TaskInput) (service.Envelope, error) {
	if f.CreateErr != nil {
		return service.Envelope{}, f.CreateErr
	}
	if strings.TrimSpace(in.Title) == "" {
		return service.Envelope{}, &service.Error{Kind: service.KindValidation, Message: "Title is required", Status: 400}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	status := in.Status
	if status == "" {
		status = service.StatusPending
	}
	t := service.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      status,
		Owner:       in.Owner,
		CreatedAt:   f.tick(),
	}
	t.UpdatedAt = t.CreatedAt
	f.tasks = append(f.tasks, t)
	return service.Envelope{Task: &t, Message: "Task created"}, nil
}

// Update implements service.TaskService.
func (f *FakeService) Update(ctx context.Context, taskID string, p service.TaskPatch) (service.Envelope, error) {
	if f.UpdateErr != nil {
		return service.Envelope{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(taskID)
	if i < 0 {
		return service.Envelope{}, ErrTaskNotFound
	}
	t := &f.tasks[i]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	t.UpdatedAt = f.tick()
	out := *t
	return service.Envelope{Task: &out}, nil
}

// Delete implements service.TaskService.
func (f *FakeService) Delete(ctx context.Context, taskID string) (service.Envelope, error) {
	if f.DeleteErr != nil {
		return service.Envelope{}, f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(taskID)
	if i < 0 {
		return service.Envelope{}, ErrTaskNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return service.Envelope{Message: "Task deleted"}, nil
}

// ToggleStatus implements service.TaskService.
func (f *FakeService) ToggleStatus(ctx context.Context, taskID string, status service.Status) (service.Envelope, error) {
	if f.ToggleErr != nil {
		return service.Envelope{}, f.ToggleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(taskID)
	if i < 0 {
		return service.Envelope{}, ErrTaskNotFound
	}
	f.tasks[i].Status = status
	f.tasks[i].UpdatedAt = f.tick()
	out := f.tasks[i]
	return service.Envelope{Task: &out}, nil
}

// ListByCategory implements service.TaskService.
func (f *FakeService) ListByCategory(ctx context.Context, ownerID string, category service.Category) (service.Envelope, error) {
	if f.CategoryErr != nil {
		return service.Envelope{}, f.CategoryErr
	}
	return service.Envelope{Tasks: f.filter(func(t service.Task) bool {
		return t.Owner == ownerID && t.Category == category
	})}, nil
}

// ListPending implements service.TaskService.
func (f *FakeService) ListPending(ctx context.Context, ownerID string) (service.Envelope, error) {
	if f.ListErr != nil {
		return service.Envelope{}, f.ListErr
	}
	return service.Envelope{Tasks: f.filter(func(t service.Task) bool {
		return t.Owner == ownerID && t.Status == service.StatusPending
	})}, nil
}

// ListCompleted implements service.TaskService.
func (f *FakeService) ListCompleted(ctx context.Context, ownerID string) (service.Envelope, error) {
	if f.ListErr != nil {
		return service.Envelope{}, f.ListErr
	}
	return service.Envelope{Tasks: f.filter(func(t service.Task) bool {
		return t.Owner == ownerID && t.Status == service.StatusCompleted
	})}, nil
}

// Search implements service.TaskService. Matches titles case-insensitively.
func (f *FakeService) Search(ctx context.Context, query string) (service.Envelope, error) {
	if f.SearchErr != nil {
		return service.Envelope{}, f.SearchErr
	}
	q := strings.ToLower(strings.TrimSpace(query))
	return service.Envelope{Tasks: f.filter(func(t service.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q)
	})}, nil
}

func (f *FakeService) index(taskID string) int {
	for i, t := range f.tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}
