package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"satang/config"
	"satang/internal/relay"

	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.SharedSecret == "" {
		log.Fatal("GATEWAY_SHARED_SECRET is not set")
	}
	spool, err := relay.NewSpool(cfg.SpoolDir)
	if err != nil {
		log.Fatalf("spool: %v", err)
	}
	rl := relay.New(cfg, spool)

	ctx, cancel := context.WithCancel(context.Background())
	go rl.ReplayLoop(ctx, cfg.ReplayInterval)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/api/v1/webhooks/payment", rl.Handle)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}
	go func() {
		log.Infof("edge relay listening on :%s, forwarding to %s", cfg.Port, cfg.OriginURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()
	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("relay shutdown: %v", err)
	}
	log.Info("relay stopped")
}
