package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"letshare-server/internal/authn"
	"letshare-server/internal/bridge"
	"letshare-server/internal/config"
	"letshare-server/internal/hub"
	"letshare-server/internal/httpapi"
	"letshare-server/internal/inbox"
	"letshare-server/internal/middleware"
	"letshare-server/internal/push"
	"letshare-server/internal/telegram"
	"letshare-server/internal/webhook"
	"letshare-server/internal/wsapi"
	"letshare-server/pkg/logger"
)

const (
	authGrace     = 10 * time.Second
	sweepInterval = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config: failed to load")
	}

	logger.Init(cfg.LogLevel, cfg.LogMaxEntries)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	instanceID := uuid.NewString()
	logrus.WithField("instance_id", instanceID).Info("booting")

	verifier, err := authn.New(cfg.JWTSecret, cfg.CookieSecret)
	if err != nil {
		logrus.WithError(err).Fatal("authn: failed to initialize verifier")
	}

	b := buildBridge(cfg, instanceID)

	h := hub.New(b, instanceID, authGrace, sweepInterval)

	redisClient := newRedisClient(cfg)

	notificationInbox := inbox.New(redisClient, h, cfg.InboxMax, cfg.InboxTTL)
	pushStore := push.NewStore(redisClient, cfg.PushMaxDevices)

	vapidKeys := push.VAPIDKeys{
		PublicKey:  cfg.VAPID.PublicKey,
		PrivateKey: cfg.VAPID.PrivateKey,
		Subject:    cfg.VAPID.Subject,
	}
	userPush := push.NewDispatcher(pushStore, vapidKeys)
	masterPush := push.NewDispatcher(pushStore, vapidKeys)

	relay := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	webhookHandlers := webhook.NewHandlers(h, cfg.WebhookToken, relay)
	internalHandlers := webhook.NewInternalHandlers(h, notificationInbox, userPush, masterPush, cfg.WebhookToken)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.ErrorHandler(cfg.Production()))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		AllowCredentials: true,
	}))

	wsHandler := wsapi.New(h, verifier)
	r.GET("/ws", wsHandler.ServeWS)

	api := r.Group("/api/v1")

	webhookGroup := api.Group("/broadcast")
	{
		webhookGroup.POST("/call-new", webhookHandlers.CallNew)
		webhookGroup.POST("/call-updated", webhookHandlers.CallUpdated)
		webhookGroup.POST("/call-ended", webhookHandlers.CallEnded)
		webhookGroup.POST("/order-new", webhookHandlers.OrderNew)
		webhookGroup.POST("/order-updated", webhookHandlers.OrderUpdated)
		webhookGroup.POST("/notification", webhookHandlers.Notification)
		webhookGroup.POST("/avito-event", webhookHandlers.AvitoEvent)
	}

	internalGroup := api.Group("/notifications/internal")
	{
		internalGroup.POST("/create", internalHandlers.Create)
		internalGroup.POST("/notify-users", internalHandlers.NotifyUsers)
		internalGroup.POST("/notify-room", internalHandlers.NotifyRoom)
		internalGroup.POST("/operator/call", internalHandlers.OperatorCall)
		internalGroup.POST("/operator/order", internalHandlers.OperatorOrder)
		internalGroup.POST("/directors/city", internalHandlers.DirectorsCity)
		internalGroup.POST("/master", internalHandlers.Master)
		internalGroup.POST("/system", internalHandlers.System)
	}

	statsRoutes := httpapi.NewStatsRoutes(h, b)
	statsRoutes.RegisterPublic(api)

	authed := api.Group("")
	authed.Use(middleware.RequireUser(verifier))
	httpapi.NewNotificationRoutes(notificationInbox).Register(authed)
	httpapi.NewPushRoutes(pushStore, userPush).Register(authed)
	statsRoutes.Register(authed)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server: failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("server: graceful shutdown failed")
	}

	h.Shutdown()
	_ = b.Close()

	logrus.Info("shutdown complete")
}

func buildBridge(cfg *config.Config, instanceID string) bridge.Bridge {
	if cfg.Redis.Host == "" && cfg.Redis.SentinelHost == "" {
		logrus.Warn("bridge: no redis configured, running in single-instance degraded mode")
		return bridge.NewNoop()
	}

	rc := bridge.RedisConfig{
		Mode:           cfg.Redis.Mode,
		Addr:           cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password:       cfg.Redis.Password,
		SentinelAddr:   cfg.Redis.SentinelHost + ":" + cfg.Redis.SentinelPort,
		SentinelMaster: cfg.Redis.SentinelMaster,
	}
	return bridge.NewRedis(rc, instanceID)
}

func newRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.Redis.Mode == "sentinel" {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.Redis.SentinelMaster,
			SentinelAddrs: []string{cfg.Redis.SentinelHost + ":" + cfg.Redis.SentinelPort},
			Password:      cfg.Redis.Password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
	})
}
