package service

import "context"

// TaskService defines the remote task operations.
// Every call is a single request; implementations do no caching or retry.
type TaskService interface {
	// List returns all tasks owned by ownerID in server order.
	List(ctx context.Context, ownerID string) (Envelope, error)

	// GetByID returns one task in Envelope.Task.
	GetByID(ctx context.Context, taskID string) (Envelope, error)

	// Create creates a task and returns it in Envelope.Task.
	Create(ctx context.Context, input TaskInput) (Envelope, error)

	// Update applies a partial update and returns the updated task.
	Update(ctx context.Context, taskID string, patch TaskPatch) (Envelope, error)

	// Delete removes a task.
	Delete(ctx context.Context, taskID string) (Envelope, error)

	// ToggleStatus sets the task status and returns the updated task.
	ToggleStatus(ctx context.Context, taskID string, status Status) (Envelope, error)

	// ListByCategory returns the owner's tasks in one category.
	ListByCategory(ctx context.Context, ownerID string, category Category) (Envelope, error)

	// ListPending returns the owner's pending tasks.
	ListPending(ctx context.Context, ownerID string) (Envelope, error)

	// ListCompleted returns the owner's completed tasks.
	ListCompleted(ctx context.Context, ownerID string) (Envelope, error)

	// Search matches the caller's tasks by free text.
	Search(ctx context.Context, query string) (Envelope, error)
}

// AuthService defines the remote authentication operations.
type AuthService interface {
	// SendOTP asks the service to mail a one-time code to email.
	SendOTP(ctx context.Context, email string) (AuthResult, error)

	// Signup registers a new user and returns the user and token.
	Signup(ctx context.Context, input SignupInput) (AuthResult, error)

	// Login exchanges credentials for a user and token.
	Login(ctx context.Context, email, password string) (AuthResult, error)
}

// Service is the full remote surface used by the CLI.
type Service interface {
	TaskService
	AuthService
}
