// Package service defines the backend-agnostic types and interfaces for task operations.
package service

import (
	"fmt"
	"strings"
	"time"
)

// Category groups tasks. The remote service accepts exactly these values.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryOther    Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryOther}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, k := range Categories {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid category: %s", s)
}

// Status is the completion state of a task.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggled returns the opposite status.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// ParseStatus matches s case-insensitively. "done" is accepted for Completed.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// Task represents a single task item. ID is assigned by the remote service.
type Task struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	Owner       string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	Owner       string   `json:"user"`
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil
}

// Envelope is the response shape of every task endpoint.
type Envelope struct {
	Tasks   []Task `json:"tasks,omitempty"`
	Task    *Task  `json:"task,omitempty"`
	Message string `json:"message,omitempty"`
}

// User is the identity returned by signup and login.
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Image     string `json:"image,omitempty"`
}

// Session is an authenticated user plus its bearer credential.
type Session struct {
	User  User
	Token string
}

// DisplayName returns "First Last", falling back to the email.
func (s Session) DisplayName() string {
	name := strings.TrimSpace(s.User.FirstName + " " + s.User.LastName)
	if name == "" {
		return s.User.Email
	}
	return name
}

// AuthResult is the response of the auth endpoints.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
}

// SignupInput holds the fields submitted at signup.
type SignupInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	OTP             string `json:"otp"`
}
