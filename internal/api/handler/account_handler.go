package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/api/metrics"
	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// maxAvatarForm bounds the multipart form kept in memory; larger parts spill to disk.
const maxAvatarForm = 8 << 20

// AccountHandler serves the /auth routes.
type AccountHandler struct {
	accounts ports.AccountService
	avatars  ports.AvatarStore
}

func NewAccountHandler(accounts ports.AccountService, avatars ports.AvatarStore) *AccountHandler {
	return &AccountHandler{accounts: accounts, avatars: avatars}
}

type registerRequest struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  form:"last_name"  validate:"max=100"`
	Email     string `json:"email"      form:"email"      validate:"required,email"`
	Password  string `json:"password"   form:"password"   validate:"required,min=6"`
	Role      string `json:"role"       form:"role"       validate:"required,oneof=owner customer"`
	Phone     string `json:"phone"      form:"phone"`
	Address   string `json:"address"    form:"address"    validate:"max=300"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=owner customer admin"`
}

type profileRequest struct {
	FirstName string `json:"first_name" form:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  form:"last_name"  validate:"max=100"`
	Address   string `json:"address"    form:"address"    validate:"max=300"`
	Phone     string `json:"phone"      form:"phone"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Code     string `json:"code"     validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=6"`
}

type sessionResponse struct {
	User      domain.PublicAccount `json:"user"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
}

type userResponse struct {
	User domain.PublicAccount `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newSessionResponse(res *ports.AuthResult) sessionResponse {
	return sessionResponse{User: res.Account.Public(), Token: res.Token, ExpiresAt: res.ExpiresAt}
}

// Register creates an owner or customer account and opens a session.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /auth/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		recordAuth("register", err)
		return err
	}

	res, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      domain.Role(req.Role),
		Phone:     req.Phone,
		Address:   req.Address,
	})
	recordAuth("register", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newSessionResponse(res))
}

// Login authenticates by email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /auth/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
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

	return c.JSON(http.StatusOK, newSessionResponse(res))
}

// Guest opens a session for a fresh guest account.
//
// @Summary      Continue as guest
// @Tags         auth
// @Produce      json
// @Success      201  {object}  sessionResponse
// @Failure      500  {object}  messageResponse
// @Router       /auth/guest [post]
func (h *AccountHandler) Guest(c echo.Context) error {
	res, err := h.accounts.ContinueAsGuest(c.Request().Context())
	recordAuth("guest", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newSessionResponse(res))
}

// Me returns the caller's account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /auth/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	account, err := h.accounts.Profile(c.Request().Context(), caller.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrForbidden
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: account.Public()})
}

// UpdateProfile applies a partial profile update. Multipart requests may
// carry an "avatar" image file.
//
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        body    body      profileRequest  false  "Profile fields"
// @Param        avatar  formData  file            false  "Avatar image"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  messageResponse
// @Failure      401     {object}  messageResponse
// @Failure      403     {object}  messageResponse
// @Router       /auth/profile [put]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var (
		req    profileRequest
		avatar *ports.AvatarUpload
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := c.Request().ParseMultipartForm(maxAvatarForm); err != nil {
			return domain.Invalid("invalid multipart form")
		}
		req = profileRequest{
			FirstName: c.FormValue("first_name"),
			LastName:  c.FormValue("last_name"),
			Address:   c.FormValue("address"),
			Phone:     c.FormValue("phone"),
		}
		if err := validate(c, &req); err != nil {
			return err
		}

		fh, err := c.FormFile("avatar")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return domain.Invalid("invalid avatar upload")
		default:
			f, err := fh.Open()
			if err != nil {
				return domain.Invalid("invalid avatar upload")
			}
			defer f.Close()
			avatar = &ports.AvatarUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Content:     f,
			}
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.UpdateProfile(c.Request().Context(), caller.AccountID, ports.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		Avatar:    avatar,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: account.Public()})
}

// Avatar streams a stored avatar image.
//
// @Summary      Avatar image
// @Tags         auth
// @Produce      image/png
// @Produce      image/jpeg
// @Param        id   path      string  true  "Avatar id"
// @Success      200  {file}    binary
// @Failure      404  {object}  messageResponse
// @Router       /auth/avatar/{id} [get]
func (h *AccountHandler) Avatar(c echo.Context) error {
	rc, contentType, err := h.avatars.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	defer rc.Close()

	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=86400")
	return c.Stream(http.StatusOK, contentType, rc)
}

// ForgotPassword sends a reset code when the email belongs to an account.
// The response is identical whether or not it does.
//
// @Summary      Request a password reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      202   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /auth/password/forgot [post]
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.accounts.RequestPasswordReset(c.Request().Context(), req.Email)
	recordReset("requested", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "If the email is registered, a reset code has been sent"})
}

// ResetPassword sets a new password using an emailed reset code.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email, code and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /auth/password/reset [post]
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.accounts.ResetPassword(c.Request().Context(), req.Email, req.Code, req.Password)
	recordReset("completed", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated"})
}

func recordAuth(operation string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(operation, authResult(err)).Inc()
}

func recordReset(stage string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.PasswordResetsTotal.WithLabelValues(stage, result).Inc()
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_input"
	case errors.Is(err, domain.ErrDuplicateAccount):
		return "duplicate"
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrInvalidCredential):
		return "invalid_credentials"
	default:
		return "error"
	}
}
