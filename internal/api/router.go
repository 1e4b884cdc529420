package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/workforcehq/hrms-api/docs"
	"github.com/workforcehq/hrms-api/internal/api/handler"
	"github.com/workforcehq/hrms-api/internal/api/middleware"
	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
	"github.com/workforcehq/hrms-api/internal/infrastructure/http/handlers"
)

// Dependencies are the already-constructed collaborators the router wires
// into handlers and middleware.
type Dependencies struct {
	Auth          ports.AuthService
	Authenticator ports.Authenticator
	Users         ports.UserService
	IPPolicy      domain.IPMatchPolicy
	// IPExtractor resolves c.RealIP(); nil means the peer address only.
	IPExtractor echo.IPExtractor
	Readiness   *handlers.HealthDependenciesHandler
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.IPExtractor = deps.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(deps.Logger))

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)

	authenticate := middleware.Authenticate(deps.Authenticator)
	allowIP := middleware.IPAllowList(deps.IPPolicy)
	staff := []domain.Role{domain.RoleAdmin, domain.RoleHR}

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, authenticate)
	auth.GET("/me", authHandler.Me, authenticate, allowIP)
	auth.POST("/change-password", authHandler.ChangePassword, authenticate, allowIP)

	// --- Protected API ---
	v1 := e.Group("/v1", authenticate, allowIP)
	v1.POST("/users", userHandler.Create, middleware.RequireRole(staff...))
	v1.GET("/users/:id", userHandler.Get, middleware.RequireOwnerOrRole(staff...))
	v1.PATCH("/users/:id/deactivate", userHandler.Deactivate, middleware.RequireRole(staff...))
	v1.GET("/reports/access", userHandler.AccessReport, middleware.RequirePermission(domain.PermViewReports))

	// --- Health probes (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness) // liveness  – is the process alive?
	if deps.Readiness != nil {
		e.GET("/health/ready", deps.Readiness.Readiness) // readiness – are dependencies up?
	}

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
