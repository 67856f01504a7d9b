package server

import (
	"time"

	"credential-client/internal/app"
	"credential-client/internal/auth"
	"credential-client/internal/handler"
	"credential-client/internal/hub"
	"credential-client/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	App         *app.Controller
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
	Limiter     *middleware.Limiter
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewLimiter(10, time.Minute)
	}
	if deps.Hub == nil {
		deps.Hub = hub.New()
	}

	viewer := r.Group("/")
	viewer.Use(middleware.RequireViewer(deps.TokenConfig))

	statusHandler := &handler.StatusHandler{App: deps.App}
	viewer.GET("/", statusHandler.Index)
	viewer.GET("/api/status", statusHandler.Status)

	sessionHandler := &handler.SessionHandler{App: deps.App}
	viewer.GET("/api/session", sessionHandler.Get)
	viewer.POST("/api/session/login", middleware.Throttle(limiter), sessionHandler.Login)
	viewer.POST("/api/session/register", middleware.Throttle(limiter), sessionHandler.Register)
	viewer.POST("/api/session/logout", sessionHandler.Logout)
	viewer.POST("/api/password-strength", sessionHandler.PasswordStrength)

	uploadHandler := &handler.UploadHandler{App: deps.App}
	viewer.POST("/api/uploads", uploadHandler.Create)
	viewer.GET("/api/uploads/current", uploadHandler.Current)

	credentialHandler := &handler.CredentialHandler{App: deps.App}
	viewer.GET("/api/credentials", credentialHandler.List)
	viewer.POST("/api/credentials/refresh", credentialHandler.Refresh)
	viewer.POST("/api/credentials/issue", credentialHandler.Issue)
	viewer.POST("/api/verify", middleware.Throttle(limiter), credentialHandler.Verify)
	viewer.POST("/api/credentials/:id/verify", middleware.Throttle(limiter), credentialHandler.VerifyByID)
	viewer.GET("/api/credentials/:id/qr", credentialHandler.QR)

	feedHandler := &handler.FeedHandler{App: deps.App}
	viewer.GET("/api/activity", feedHandler.Activity)
	viewer.GET("/api/notifications", feedHandler.Notifications)
	viewer.DELETE("/api/notifications/:id", feedHandler.Dismiss)

	wsHandler := &handler.WebSocketHandler{Hub: deps.Hub, App: deps.App}
	viewer.GET("/ws", wsHandler.Serve)

	return r
}
