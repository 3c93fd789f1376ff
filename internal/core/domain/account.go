package domain

import (
	"strings"
	"time"
)

// Role is the closed set of categories controlling route access.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleCustomer Role = "customer"
	RoleGuest    Role = "guest"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleCustomer, RoleGuest, RoleAdmin:
		return true
	}
	return false
}

// SelfRegistrable reports whether an account with this role may be created
// through the public signup endpoints.
func (r Role) SelfRegistrable() bool {
	return r == RoleOwner || r == RoleCustomer
}

// Account models a persisted identity. Guests carry no email or password.
type Account struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Address      string    `json:"address,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	AvatarID     string    `json:"avatar_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Name joins first and last name.
func (a *Account) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// PublicAccount is the projection of an Account that leaves the service.
type PublicAccount struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Public returns the credential-free projection of a.
func (a *Account) Public() PublicAccount {
	p := PublicAccount{
		ID:        a.ID,
		Name:      a.Name(),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
		Address:   a.Address,
		Phone:     a.Phone,
	}
	if a.AvatarID != "" {
		p.AvatarURL = "/auth/avatar/" + a.AvatarID
	}
	return p
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
