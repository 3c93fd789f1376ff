package ports

import (
	"time"

	"github.com/printease/printease/internal/core/domain"
)

// TokenVerifier decodes and validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// TokenIssuer mints and verifies session tokens.
type TokenIssuer interface {
	TokenVerifier
	Issue(accountID string, role domain.Role) (token string, expiresAt time.Time, err error)
}
