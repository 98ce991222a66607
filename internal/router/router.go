package router

import (
	"time"

	"satang/config"
	"satang/internal/gateway"
	"satang/internal/handler"
	"satang/internal/middleware"
	"satang/internal/repository"
	"satang/internal/service"
	"satang/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	intentRepo := repository.NewIntentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	statusHub := ws.NewStatusHub()

	// Services
	gw := gateway.NewHTTPClient(&cfg.Gateway)
	poller := gateway.NewPoller(gw, &cfg.Poller)
	authSvc := service.NewAuthService(cfg, userRepo)
	creditSvc := service.NewCreditService(gw, poller, intentRepo, ledgerRepo, auditRepo, statusHub, cfg.Gateway.IntentTTL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	intentHandler := handler.NewIntentHandler(creditSvc)
	confirmHandler := handler.NewConfirmHandler(creditSvc)
	creditHandler := handler.NewCreditHandler(creditSvc)
	webhookHandler := handler.NewWebhookHandler(creditSvc, auditRepo, cfg.Gateway.SharedSecret)

	authMw := middleware.AuthRequired(&cfg.JWT)
	manualLimiter := middleware.NewInMemoryRateLimiter(cfg.Manual.RateLimit, cfg.Manual.RateLimitWindow)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("/intents", intentHandler.Create)
			payments.GET("/intents", intentHandler.List)
			payments.GET("/intents/:intent_id/details", intentHandler.Details)
			payments.POST("/confirm/poll", confirmHandler.Poll)
			payments.POST("/confirm/manual", middleware.RateLimitByReference(manualLimiter), confirmHandler.Manual)
		}

		credits := api.Group("/credits")
		credits.Use(authMw)
		{
			credits.POST("/balance", creditHandler.Balance)
			credits.GET("/transactions", creditHandler.Transactions)
		}

		// Gateway-facing: authenticated by the envelope signature, not JWT.
		api.POST("/webhooks/payment", webhookHandler.Handle)
	}

	r.GET("/ws/payments", ws.UpgradeStatusWS(&cfg.JWT, statusHub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
