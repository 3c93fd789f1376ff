package ports

import (
	"context"
	"io"
	"time"

	"github.com/printease/printease/internal/core/domain"
)

// RegisterInput carries the signup fields accepted from either auth surface.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
	Phone     string
	Address   string
}

// LoginInput carries login credentials. Role is optional and narrows the lookup.
type LoginInput struct {
	Email    string
	Password string
	Role     domain.Role
}

// AvatarUpload is an image attached to a profile update.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// UpdateProfileInput is a partial profile update. Empty strings mean "unchanged".
type UpdateProfileInput struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Avatar    *AvatarUpload
}

// AuthResult is returned by every operation that opens a session.
type AuthResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// AccountService implements signup, login and profile management.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	ContinueAsGuest(ctx context.Context) (*AuthResult, error)
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*domain.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}
