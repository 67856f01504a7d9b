package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"credential-client/internal/app"
	"credential-client/internal/auth"
	"credential-client/internal/backend"
	"credential-client/internal/config"
	"credential-client/internal/hub"
	"credential-client/internal/middleware"
	"credential-client/internal/schedule"
	"credential-client/internal/server"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	gin.SetMode(cfg.GinMode)

	client, err := backend.New(cfg.BackendURL)
	if err != nil {
		log.Fatal(err)
	}

	events := hub.New()
	ctrl := app.New(client, schedule.New(), events, app.Options{
		NotificationTTL: cfg.NotificationTTL,
		AutoLoginDelay:  cfg.AutoLoginDelay,
		ActivityRefresh: cfg.ActivityRefresh,
	})
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sess, ok := ctrl.Start(ctx); ok {
		log.Printf("session restored for %s", sess.Username)
	}

	tokenCfg := auth.TokenConfig{
		Secret: cfg.ViewSecret,
		Expiry: cfg.TokenExpiry,
		Issuer: auth.DefaultIssuer,
	}
	viewToken, err := auth.IssueViewToken(auth.NewViewerID(), tokenCfg)
	if err != nil {
		log.Fatal(err)
	}

	limiter := middleware.NewLimiter(10, time.Minute)
	defer limiter.Close()

	router := server.NewRouter(server.Deps{App: ctrl, Hub: events, TokenConfig: tokenCfg, Limiter: limiter})
	log.Printf("backend %s", cfg.BackendURL)
	log.Printf("listening on %s", fmt.Sprintf(":%d", cfg.Port))
	log.Printf("view token: %s", viewToken)
	if err := server.Run(ctx, cfg, router); err != nil {
		log.Fatal(err)
	}
}
