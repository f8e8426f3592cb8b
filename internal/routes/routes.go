package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pokequest/internal/authz"
	"pokequest/internal/handlers"
	"pokequest/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	verifier authz.ClaimsVerifier,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	metricsHandler http.Handler, // may be nil
) *gin.Engine {
	r.GET("/healthz", healthHandler.Healthz)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	requireAuth := middleware.RequireAuth(verifier)

	// ---- public + token-checked auth routes
	auth := r.Group("/api/auth")
	{
		auth.GET("/captcha", authHandler.Captcha)
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/reset-password-request", authHandler.RequestPasswordReset)
		auth.GET("/verify", requireAuth, authHandler.Verify)
	}

	// ---- own profile
	user := r.Group("/api/user", requireAuth)
	{
		user.PUT("/update-pseudo", userHandler.UpdatePseudo)
		user.PUT("/update-password", userHandler.UpdatePassword)
		user.DELETE("/account", userHandler.DeleteAccount)
	}

	// ---- admin panel
	admin := r.Group("/api/admin", requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/toggle-admin", adminHandler.ToggleAdmin)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	return r
}
