package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrResetCodeInvalid  = errors.New("reset code is invalid or expired")

	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAvatarNotFound       = errors.New("avatar not found")
)

// ValidationError carries a caller-facing reason for rejected input.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid returns a ValidationError with the given reason.
func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}
