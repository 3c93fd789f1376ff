package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

const (
	MinPasswordLength   = 6
	DefaultBcryptCost   = 10
	DefaultResetCodeTTL = 15 * time.Minute
	DefaultPhoneRegion  = "US"
)

// AccountOptions tunes AccountService and supplies its optional collaborators.
// Password reset needs ResetCodes and CodeSender; avatar uploads need Avatars.
type AccountOptions struct {
	BcryptCost   int
	PhoneRegion  string
	ResetCodeTTL time.Duration

	ResetCodes ports.ResetCodeStore
	CodeSender ports.CodeSender
	Avatars    ports.AvatarStore
}

// AccountService implements registration, login and profile management.
type AccountService struct {
	repo   ports.AccountRepository
	tokens ports.TokenIssuer
	opts   AccountOptions
	log    zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.AccountRepository, tokens ports.TokenIssuer, log zerolog.Logger, opts AccountOptions) *AccountService {
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = DefaultBcryptCost
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = DefaultPhoneRegion
	}
	if opts.ResetCodeTTL <= 0 {
		opts.ResetCodeTTL = DefaultResetCodeTTL
	}
	return &AccountService{repo: repo, tokens: tokens, opts: opts, log: log, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)

	switch {
	case firstName == "":
		return nil, domain.Invalid("first name is required")
	case email == "":
		return nil, domain.Invalid("email is required")
	case !validEmail(email):
		return nil, domain.Invalid("email must be a valid email")
	case len(in.Password) < MinPasswordLength:
		return nil, domain.Invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case !in.Role.SelfRegistrable():
		return nil, domain.Invalid("role must be one of: owner customer")
	}

	phone, err := s.normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &domain.Account{
		FirstName:    firstName,
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Address:      strings.TrimSpace(in.Address),
		Phone:        phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", created.ID).Str("role", string(created.Role)).Msg("account registered")
	return s.openSession(created)
}

func (s *AccountService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.Invalid("email and password are required")
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, domain.Invalid("unknown role")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if in.Role != "" && account.Role != in.Role {
		return nil, domain.ErrAccountNotFound
	}

	if account.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)) != nil {
		return nil, domain.ErrInvalidCredential
	}

	return s.openSession(account)
}

// ContinueAsGuest persists a credential-less guest account and opens a session for it.
func (s *AccountService) ContinueAsGuest(ctx context.Context) (*ports.AuthResult, error) {
	now := s.now().UTC()
	guest := &domain.Account{
		FirstName: "Guest",
		LastName:  strings.ToUpper(uuid.NewString()[:8]),
		Role:      domain.RoleGuest,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, guest)
	if err != nil {
		return nil, err
	}
	return s.openSession(created)
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, in ports.UpdateProfileInput) (*domain.Account, error) {
	var (
		changes ports.ProfileChanges
		changed bool
	)
	set := func(dst **string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = &v
			changed = true
		}
	}
	set(&changes.FirstName, in.FirstName)
	set(&changes.LastName, in.LastName)
	set(&changes.Address, in.Address)

	if strings.TrimSpace(in.Phone) != "" {
		phone, err := s.normalizePhone(in.Phone)
		if err != nil {
			return nil, err
		}
		set(&changes.Phone, phone)
	}

	if in.Avatar != nil {
		id, err := s.storeAvatar(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		set(&changes.AvatarID, id)
	}

	if !changed {
		return s.repo.FindByID(ctx, accountID)
	}
	return s.repo.UpdateProfile(ctx, accountID, changes)
}

// RequestPasswordReset issues a reset code for a known email. Unknown emails
// succeed silently so callers cannot probe which accounts exist.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Invalid("email is required")
	}
	if s.opts.ResetCodes == nil || s.opts.CodeSender == nil {
		return errors.New("password reset is not configured")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := newResetCode()
	if err != nil {
		return err
	}
	if err := s.opts.ResetCodes.Save(ctx, account.Email, code, s.opts.ResetCodeTTL); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	if err := s.opts.CodeSender.SendResetCode(ctx, account.Email, code); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset requested")
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = domain.NormalizeEmail(email)
	switch {
	case email == "" || strings.TrimSpace(code) == "":
		return domain.Invalid("email and code are required")
	case len(newPassword) < MinPasswordLength:
		return domain.Invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if s.opts.ResetCodes == nil {
		return errors.New("password reset is not configured")
	}

	ok, err := s.opts.ResetCodes.Consume(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	if !ok {
		return domain.ErrResetCodeInvalid
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrResetCodeInvalid
	}
	if err != nil {
		return err
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return err
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset completed")
	return nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	if email == "" || len(password) < MinPasswordLength {
		return domain.Invalid("admin email and a password of at least 6 characters are required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	_, err = s.repo.Create(ctx, &domain.Account{
		FirstName:    "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrDuplicateAccount) {
		return nil
	}
	return err
}

func (s *AccountService) openSession(account *domain.Account) (*ports.AuthResult, error) {
	token, expires, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Account: account, Token: token, ExpiresAt: expires}, nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.Invalid("password is too long")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// normalizePhone returns the E.164 form of raw, or "" when raw is blank.
func (s *AccountService) normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, s.opts.PhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", domain.Invalid("phone must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (s *AccountService) storeAvatar(ctx context.Context, avatar *ports.AvatarUpload) (string, error) {
	if s.opts.Avatars == nil {
		return "", errors.New("avatar storage is not configured")
	}
	if !strings.HasPrefix(avatar.ContentType, "image/") {
		return "", domain.Invalid("avatar must be an image")
	}
	name := uuid.NewString() + strings.ToLower(path.Ext(avatar.Filename))
	id, err := s.opts.Avatars.Upload(ctx, name, avatar.ContentType, avatar.Content)
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	return id, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
