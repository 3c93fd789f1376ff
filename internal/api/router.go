package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/printease/printease/docs"
	"github.com/printease/printease/internal/api/handler"
	"github.com/printease/printease/internal/api/middleware"
	"github.com/printease/printease/internal/core/ports"
)

// Deps is everything the HTTP layer needs. Services are injected so the
// router can be exercised with in-memory implementations.
type Deps struct {
	Accounts      ports.AccountService
	Tokens        ports.TokenVerifier
	Chat          ports.ChatService
	Notifications ports.NotificationService
	Avatars       ports.AvatarStore
	HealthChecks  map[string]handler.HealthCheck
	Log           zerolog.Logger

	CORSOrigins []string
	// LoginRate is the sustained requests per second allowed per client IP on
	// credential endpoints; LoginBurst is the bucket size. Zero disables limiting.
	LoginRate  float64
	LoginBurst int

	// Registry receives the HTTP metrics. Nil uses the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echo.WrapMiddleware(corsHandler(deps.CORSOrigins)))

	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "printease"}
	handlerCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		promCfg.Registerer = deps.Registry
		handlerCfg.Gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Handlers ---
	accounts := handler.NewAccountHandler(deps.Accounts, deps.Avatars)
	legacy := handler.NewLegacyAuthHandler(deps.Accounts)
	chat := handler.NewChatHandler(deps.Chat)
	notifications := handler.NewNotificationHandler(deps.Notifications)
	health := handler.NewHealthHandler(deps.HealthChecks)

	limited := credentialLimiter(deps.LoginRate, deps.LoginBurst)
	authed := middleware.Access(deps.Tokens)

	// --- Storefront auth routes ---
	legacyAuth := e.Group("/api/auth")
	legacyAuth.POST("/signup", legacy.Signup, limited...)
	legacyAuth.POST("/login", legacy.Login, limited...)

	// --- Account routes ---
	auth := e.Group("/auth")
	auth.POST("/register", accounts.Register, limited...)
	auth.POST("/login", accounts.Login, limited...)
	auth.POST("/guest", accounts.Guest, limited...)
	auth.POST("/password/forgot", accounts.ForgotPassword, limited...)
	auth.POST("/password/reset", accounts.ResetPassword, limited...)
	auth.GET("/avatar/:id", accounts.Avatar)
	auth.GET("/me", accounts.Me, authed...)
	auth.PUT("/profile", accounts.UpdateProfile, authed...)

	// --- Chat routes ---
	e.POST("/conversation", chat.StartConversation, authed...)
	e.GET("/conversations", chat.ListConversations, authed...)
	e.GET("/messages/:conversationId", chat.ListMessages, authed...)
	e.POST("/messages", chat.SendMessage, authed...)

	// --- Notification routes ---
	notify := e.Group("/api/notifications", authed...)
	notify.GET("", notifications.List)
	notify.PATCH("/:id/read", notifications.MarkRead)

	// --- Ops (no auth required) ---
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		ExposedHeaders: []string{echo.HeaderXRequestID},
		MaxAge:         86400,
	}).Handler
}

// credentialLimiter throttles credential endpoints per client IP with a token bucket.
func credentialLimiter(perSecond float64, burst int) []echo.MiddlewareFunc {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, try again later")
		},
	})}
}
