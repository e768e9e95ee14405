package auth

import "errors"

// Authentication and account errors. Messages are safe to show to users.
var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and corrupt records alike.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountPending is returned when an administrator has not approved the account yet.
	ErrAccountPending = errors.New("account pending approval")

	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrTeamRequired is returned when a username exists in several teams and no team was given.
	ErrTeamRequired = errors.New("team is required for this username")

	ErrTeamNotFound  = errors.New("team not found")
	ErrUsernameTaken = errors.New("username already exists in this team")
	ErrEmailTaken    = errors.New("email already registered in this team")
	ErrInvalidRole   = errors.New("invalid role")
	ErrUserNotFound  = errors.New("user not found")

	// ErrPINNotConfigured is returned by PIN verification for users without a PIN record.
	ErrPINNotConfigured = errors.New("PIN not configured")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a user-correctable input problem detected before any I/O.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Err: errors.New(message)}
}
