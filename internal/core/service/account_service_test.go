package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Account
	nextID   int
	findErr  error
	lastHash string
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Email != "" {
		for _, existing := range r.byID {
			if existing.Email == a.Email {
				return nil, domain.ErrDuplicateAccount
			}
		}
	}
	r.nextID++
	stored := cloneAccount(a)
	stored.ID = "acc-" + strconv.Itoa(r.nextID)
	r.byID[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.byID {
		if a.Email != "" && a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, id string, c ports.ProfileChanges) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&a.FirstName, c.FirstName)
	apply(&a.LastName, c.LastName)
	apply(&a.Address, c.Address)
	apply(&a.Phone, c.Phone)
	apply(&a.AvatarID, c.AvatarID)
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	r.lastHash = hash
	return nil
}

type stubResetCodes struct {
	codes map[string]string
}

func (s *stubResetCodes) Save(_ context.Context, email, code string, _ time.Duration) error {
	s.codes[email] = code
	return nil
}

func (s *stubResetCodes) Consume(_ context.Context, email, code string) (bool, error) {
	if s.codes[email] != code {
		return false, nil
	}
	delete(s.codes, email)
	return true, nil
}

type stubSender struct {
	sent map[string]string
}

func (s *stubSender) SendResetCode(_ context.Context, email, code string) error {
	s.sent[email] = code
	return nil
}

type stubAvatars struct {
	uploaded []byte
}

func (s *stubAvatars) Upload(_ context.Context, _ string, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.uploaded = b
	return "avatar-1", nil
}

func (s *stubAvatars) Open(context.Context, string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(s.uploaded)), "image/png", nil
}

type accountFixture struct {
	svc     *AccountService
	repo    *stubAccountRepo
	tokens  *TokenIssuer
	sender  *stubSender
	avatars *stubAvatars
}

func newAccountFixture() *accountFixture {
	repo := newStubAccountRepo()
	tokens := NewTokenIssuer("secret", time.Hour)
	sender := &stubSender{sent: make(map[string]string)}
	avatars := &stubAvatars{}
	svc := NewAccountService(repo, tokens, zerolog.Nop(), AccountOptions{
		BcryptCost: bcrypt.MinCost,
		ResetCodes: &stubResetCodes{codes: make(map[string]string)},
		CodeSender: sender,
		Avatars:    avatars,
	})
	return &accountFixture{svc: svc, repo: repo, tokens: tokens, sender: sender, avatars: avatars}
}

func customerInput(email, password string) ports.RegisterInput {
	return ports.RegisterInput{
		FirstName: "Ana",
		LastName:  "Lopez",
		Email:     email,
		Password:  password,
		Role:      domain.RoleCustomer,
	}
}

// ---------------------------------------------------------------------------
// Register / Login
// ---------------------------------------------------------------------------

func TestAccountService_RegisterThenLogin(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	for _, role := range []domain.Role{domain.RoleCustomer, domain.RoleOwner} {
		email := string(role) + "@x.com"
		in := customerInput(email, "secret123")
		in.Role = role

		reg, err := f.svc.Register(ctx, in)
		if err != nil {
			t.Fatalf("Register(%s) returned error: %v", role, err)
		}
		if reg.Token == "" {
			t.Fatalf("expected token on register")
		}
		if reg.Account.PasswordHash == "secret123" {
			t.Fatalf("expected password to be hashed")
		}

		res, err := f.svc.Login(ctx, ports.LoginInput{Email: email, Password: "secret123"})
		if err != nil {
			t.Fatalf("Login(%s) returned error: %v", role, err)
		}
		id, err := f.tokens.Verify(res.Token)
		if err != nil {
			t.Fatalf("token does not verify: %v", err)
		}
		if id.Role != role || id.AccountID != reg.Account.ID {
			t.Fatalf("unexpected identity: %+v", id)
		}
	}
}

func TestAccountService_EmailIsCaseInsensitive(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, customerInput("  Ana@Example.COM ", "secret123")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{Email: "ana@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("login with lower-cased email failed: %v", err)
	}
	if _, err := f.svc.Register(ctx, customerInput("ANA@example.com", "other123")); !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestAccountService_Register_Validation(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	cases := map[string]ports.RegisterInput{
		"missing first name": {Email: "a@x.com", Password: "secret123", Role: domain.RoleCustomer},
		"missing email":      {FirstName: "A", Password: "secret123", Role: domain.RoleCustomer},
		"bad email":          {FirstName: "A", Email: "not-an-email", Password: "secret123", Role: domain.RoleCustomer},
		"short password":     {FirstName: "A", Email: "a@x.com", Password: "123", Role: domain.RoleCustomer},
		"guest role":         {FirstName: "A", Email: "a@x.com", Password: "secret123", Role: domain.RoleGuest},
		"admin role":         {FirstName: "A", Email: "a@x.com", Password: "secret123", Role: domain.RoleAdmin},
		"bad phone":          {FirstName: "A", Email: "a@x.com", Password: "secret123", Role: domain.RoleCustomer, Phone: "12"},
	}
	for name, in := range cases {
		if _, err := f.svc.Register(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestAccountService_Register_NormalizesPhone(t *testing.T) {
	f := newAccountFixture()
	in := customerInput("p@x.com", "secret123")
	in.Phone = "+1 650-253-0000"

	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.Account.Phone != "+16502530000" {
		t.Fatalf("expected E.164 phone, got %q", res.Account.Phone)
	}
}

func TestAccountService_Register_Duplicate(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, customerInput("bob@x.com", "secret123"))
	if _, err := f.svc.Register(ctx, customerInput("bob@x.com", "secret456")); !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestAccountService_Register_ConcurrentDuplicate(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(ctx, customerInput("race@x.com", "secret123"))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateAccount):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("expected one success and one duplicate, got %d/%d", ok, dup)
	}
}

func TestAccountService_Login_InvalidPassword(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, customerInput("dave@x.com", "goodpass"))
	_, err := f.svc.Login(ctx, ports.LoginInput{Email: "dave@x.com", Password: "badpass"})
	if !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("wrong password must not report AccountNotFound")
	}
}

func TestAccountService_Login_AccountNotFound(t *testing.T) {
	f := newAccountFixture()

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "ghost@x.com", Password: "pass123"})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_Login_RoleConstraint(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, customerInput("carol@x.com", "secret123"))

	_, err := f.svc.Login(ctx, ports.LoginInput{Email: "carol@x.com", Password: "secret123", Role: domain.RoleOwner})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for role mismatch, got %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{Email: "carol@x.com", Password: "secret123", Role: domain.RoleCustomer}); err != nil {
		t.Fatalf("login with matching role failed: %v", err)
	}
}

func TestAccountService_ContinueAsGuest(t *testing.T) {
	f := newAccountFixture()

	res, err := f.svc.ContinueAsGuest(context.Background())
	if err != nil {
		t.Fatalf("guest failed: %v", err)
	}
	if res.Account.Email != "" || res.Account.PasswordHash != "" {
		t.Fatalf("guest must not carry credentials: %+v", res.Account)
	}
	id, err := f.tokens.Verify(res.Token)
	if err != nil || id.Role != domain.RoleGuest {
		t.Fatalf("expected guest token, got %+v (%v)", id, err)
	}

	// Two guests never clash on the email index.
	if _, err := f.svc.ContinueAsGuest(context.Background()); err != nil {
		t.Fatalf("second guest failed: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestAccountService_UpdateProfile(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	reg, _ := f.svc.Register(ctx, customerInput("eve@x.com", "secret123"))

	updated, err := f.svc.UpdateProfile(ctx, reg.Account.ID, ports.UpdateProfileInput{
		Address: "12 Main St",
		Avatar: &ports.AvatarUpload{
			Filename:    "me.PNG",
			ContentType: "image/png",
			Content:     strings.NewReader("png-bytes"),
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Address != "12 Main St" || updated.FirstName != "Ana" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.AvatarID != "avatar-1" || string(f.avatars.uploaded) != "png-bytes" {
		t.Fatalf("avatar not stored: %+v", updated)
	}
}

func TestAccountService_UpdateProfile_RejectsNonImageAvatar(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	reg, _ := f.svc.Register(ctx, customerInput("frank@x.com", "secret123"))

	_, err := f.svc.UpdateProfile(ctx, reg.Account.ID, ports.UpdateProfileInput{
		Avatar: &ports.AvatarUpload{Filename: "x.exe", ContentType: "application/octet-stream", Content: strings.NewReader("x")},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func TestAccountService_PasswordReset(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, customerInput("gina@x.com", "oldpass1"))

	if err := f.svc.RequestPasswordReset(ctx, "GINA@x.com"); err != nil {
		t.Fatalf("request reset failed: %v", err)
	}
	code := f.sender.sent["gina@x.com"]
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	if err := f.svc.ResetPassword(ctx, "gina@x.com", "000000x", "newpass1"); !errors.Is(err, domain.ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "gina@x.com", code, "newpass1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, err := f.svc.Login(ctx, ports.LoginInput{Email: "gina@x.com", Password: "oldpass1"}); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{Email: "gina@x.com", Password: "newpass1"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestAccountService_PasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAccountFixture()

	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("no code should be sent for unknown email")
	}
}

func TestAccountService_EnsureAdmin(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	if err := f.svc.EnsureAdmin(ctx, "root@x.com", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if err := f.svc.EnsureAdmin(ctx, "root@x.com", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin should be idempotent: %v", err)
	}

	res, err := f.svc.Login(ctx, ports.LoginInput{Email: "root@x.com", Password: "rootpass"})
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if res.Account.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", res.Account.Role)
	}
}
