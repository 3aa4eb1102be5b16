package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/deskhq/desk-session/internal/config"
	"github.com/deskhq/desk-session/internal/http/handler"
	httpmiddleware "github.com/deskhq/desk-session/internal/http/middleware"
	"github.com/deskhq/desk-session/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, sessionHandler *handler.SessionHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	sessionGroup := r.Group("/session")
	{
		sessionGroup.POST("/login", sessionHandler.Login)
		sessionGroup.POST("/signup", sessionHandler.Signup)
		sessionGroup.POST("/logout", authMiddleware.Require, sessionHandler.Logout)
		sessionGroup.GET("", authMiddleware.Attach, sessionHandler.Current)
		sessionGroup.POST("/switch", authMiddleware.Require, sessionHandler.Switch)
		sessionGroup.POST("/links", authMiddleware.Require, sessionHandler.Links)
	}

	r.GET("/routing/resolve", authMiddleware.Attach, sessionHandler.Resolve)

	// Page gate: the front-end edge calls this per navigation. Allowed
	// navigations answer with the session snapshot; the guard holds or
	// redirects everything else.
	app := r.Group("/app", authMiddleware.Attach, httpmiddleware.Guard("/app"))
	app.GET("/*path", sessionHandler.Current)

	return r
}
