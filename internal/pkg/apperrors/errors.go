package apperrors

import "errors"

// Error kinds. Services wrap failures in one of these so controllers can
// decide between a flash+redirect, a soft warning or a bare 404.
var (
	// Input errors: always recoverable, nothing was mutated
	ErrValidationFailed = errors.New("validation failed")

	// Storage errors: the statement failed and was rolled back
	ErrStorage = errors.New("storage error")

	// Filesystem errors while saving or removing a photo
	ErrFileSystem = errors.New("filesystem error")

	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrCSRFTokenInvalid   = errors.New("csrf token missing or invalid")
)

// Student errors
var (
	ErrStudentNotFound = NewResourceNotFoundError("student not found")
)

// Password reset errors
var (
	ErrInvalidPasswordResetToken = NewCustomError(ErrValidationFailed, "Invalid or expired reset token")
)

// CustomError represents application-specific errors with a user-facing message
type CustomError struct {
	Err     error
	Message string
	Cause   error
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewCustomError creates a CustomError with underlying error kind
func NewCustomError(kind error, message string) *CustomError {
	return &CustomError{
		Err:     kind,
		Message: message,
	}
}

// WithCause attaches the underlying error that triggered this one
func (e *CustomError) WithCause(cause error) *CustomError {
	return &CustomError{Err: e.Err, Message: e.Message, Cause: cause}
}

// NewValidationError creates a validation error carrying the message shown to the user
func NewValidationError(message string) error {
	return NewCustomError(ErrValidationFailed, message)
}

// NewStorageError wraps a failed statement
func NewStorageError(message string, cause error) error {
	return NewCustomError(ErrStorage, message).WithCause(cause)
}

// NewFileSystemError wraps a failed photo save or unlink
func NewFileSystemError(message string, cause error) error {
	return NewCustomError(ErrFileSystem, message).WithCause(cause)
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return NewCustomError(ErrResourceNotFound, message)
}

// Message returns the user-facing message of err, or fallback when err carries none
func Message(err error, fallback string) string {
	var custom *CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message
	}
	return fallback
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
