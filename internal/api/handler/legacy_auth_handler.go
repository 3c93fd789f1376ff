package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// LegacyAuthHandler serves /api/auth, the surface used by the storefront
// signup and login forms. It shares the account service and token contract
// with AccountHandler and differs only in request and response shapes.
type LegacyAuthHandler struct {
	accounts ports.AccountService
}

func NewLegacyAuthHandler(accounts ports.AccountService) *LegacyAuthHandler {
	return &LegacyAuthHandler{accounts: accounts}
}

type signupRequest struct {
	Name          string `json:"name"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"    validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	ContactNumber string `json:"contactNumber"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Role          string `json:"role"     validate:"required,oneof=owner customer"`
}

// names resolves the display name from either the single "name" field or the
// split pair, falling back to the email local part.
func (r signupRequest) names() (first, last string) {
	first, last = strings.TrimSpace(r.FirstName), strings.TrimSpace(r.LastName)
	if first == "" {
		parts := strings.Fields(r.Name)
		if len(parts) > 0 {
			first, last = parts[0], strings.Join(parts[1:], " ")
		}
	}
	if first == "" {
		first, _, _ = strings.Cut(strings.TrimSpace(r.Email), "@")
	}
	return first, last
}

type legacyLoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=owner customer admin"`
}

type legacyUser struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type legacyLoginResponse struct {
	Token string     `json:"token"`
	User  legacyUser `json:"user"`
}

// Signup registers an owner or customer account.
//
// @Summary      Sign up
// @Tags         legacy-auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup form"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Router       /api/auth/signup [post]
func (h *LegacyAuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		recordAuth("register", err)
		return err
	}

	phone := req.Phone
	if phone == "" {
		phone = req.ContactNumber
	}
	first, last := req.names()

	_, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: first,
		LastName:  last,
		Email:     req.Email,
		Password:  req.Password,
		Role:      domain.Role(req.Role),
		Phone:     phone,
		Address:   req.Address,
	})
	recordAuth("register", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Message: "User registered successfully"})
}

// Login authenticates by email and password.
//
// @Summary      Log in
// @Tags         legacy-auth
// @Accept       json
// @Produce      json
// @Param        body  body      legacyLoginRequest  true  "Credentials"
// @Success      200   {object}  legacyLoginResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /api/auth/login [post]
func (h *LegacyAuthHandler) Login(c echo.Context) error {
	var req legacyLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		recordAuth("login", err)
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	recordAuth("login", err)
	if err != nil {
		return err
	}

	a := res.Account
	return c.JSON(http.StatusOK, legacyLoginResponse{
		Token: res.Token,
		User:  legacyUser{ID: a.ID, Name: a.Name(), Email: a.Email, Role: a.Role},
	})
}
