package ports

import (
	"context"

	"github.com/printease/printease/internal/core/domain"
)

// ProfileChanges lists the account fields a profile update may touch.
// Nil pointers leave the stored value unchanged.
type ProfileChanges struct {
	FirstName *string
	LastName  *string
	Address   *string
	Phone     *string
	AvatarID  *string
}

// AccountRepository is the credential store.
type AccountRepository interface {
	// Create persists a new account. A clash on the email index returns
	// domain.ErrDuplicateAccount.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
