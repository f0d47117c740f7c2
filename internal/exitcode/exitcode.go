// Package exitcode defines exit codes for the CLI.
package exitcode

import "taskflow/internal/service"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, not found).
	UserError = 1

	// AuthError indicates a missing or rejected session.
	AuthError = 2

	// BackendError indicates a network or service failure.
	BackendError = 3
)

// FromError maps an error to its exit code. nil maps to Success.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	switch service.KindOf(err) {
	case service.KindValidation, service.KindNotFound:
		return UserError
	case service.KindAuth:
		return AuthError
	default:
		return BackendError
	}
}
