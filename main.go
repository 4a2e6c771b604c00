package main

import (
	"context"
	"os"
	"time"

	"BKConnect/global"
	"BKConnect/logger"
	midsec "BKConnect/middleware/security"
	notifhandler "BKConnect/module/notification"
	notifservice "BKConnect/module/notification/service"
	roomhandler "BKConnect/module/room"
	roomservice "BKConnect/module/room/service"
	"BKConnect/service/chat"
	"BKConnect/service/natsx"
	"BKConnect/service/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := global.Load()
	cfg.ConfigIds()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("[Boot] connect postgres failed: %v", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Errorf("[Boot] ping postgres failed: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	// redis presence mirror; the gateway degrades to single-node mode
	// without it
	var presence *storage.PresenceManager
	if err := storage.InitRedis(storage.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err != nil {
		logger.Warnf("[Boot] redis unavailable, presence mirror disabled: %v", err)
	} else {
		presence = storage.NewPresenceManager(cfg.PresenceTTL)
	}

	reg := chat.NewRegistry()
	defer reg.Close()

	rooms := roomservice.NewRoomService(pool)
	notifs := notifservice.NewNotificationService(pool)

	disp := chat.NewDispatcher(reg, rooms)

	if cfg.NatsEnabled && presence != nil {
		nc, err := natsx.New(natsx.Config{Servers: cfg.NatsServers, Name: cfg.GatewayID})
		if err != nil {
			logger.Errorf("[Boot] connect nats failed: %v", err)
			os.Exit(1)
		}
		defer nc.Close()

		disp.EnableRelay(presence, nc, cfg.GatewayID)
		if err := nc.SubscribeDeliver(cfg.GatewayID, func(userID string, payload []byte) {
			reg.Send(userID, payload)
		}); err != nil {
			logger.Errorf("[Boot] subscribe deliver failed: %v", err)
			os.Exit(1)
		}
		logger.Infof("[Boot] relay enabled gateway=%s", cfg.GatewayID)
	}

	var presenceStore chat.PresenceStore
	if presence != nil {
		presenceStore = presence
	}
	srv := chat.NewServer(chat.ServerConfig{
		GatewayID: cfg.GatewayID,
		JWTSecret: cfg.JWTSecret,
		AuthWait:  cfg.AuthWait,
	}, reg, disp, presenceStore)

	r := gin.Default()
	r.GET("/ws", srv.HandleWS)

	auth := midsec.Middleware(midsec.DefaultOptions(cfg.JWTSecret))
	roomhandler.NewHandler(rooms, notifs, disp, presence).Register(r.Group("/rooms", auth))
	notifhandler.NewHandler(notifs).Register(r.Group("/notifications", auth))

	logger.Infof("[Boot] gateway=%s listening on %s", cfg.GatewayID, cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Errorf("[Boot] server stopped: %v", err)
		os.Exit(1)
	}
}
