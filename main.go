package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/pulsefit/pulsefit-server/api/rest"
	"github.com/pulsefit/pulsefit-server/cache"
	"github.com/pulsefit/pulsefit-server/clan"
	"github.com/pulsefit/pulsefit-server/config"
	dbadapter "github.com/pulsefit/pulsefit-server/db"
	"github.com/pulsefit/pulsefit-server/maintenance"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/notify"
	"github.com/pulsefit/pulsefit-server/privacy"
	"github.com/pulsefit/pulsefit-server/rings"
	"github.com/pulsefit/pulsefit-server/social"
	"github.com/pulsefit/pulsefit-server/store"
	"github.com/pulsefit/pulsefit-server/usercache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		log.Fatal("security.jwt_secret must be set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache ----
	kv, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Core services ----
	users := usercache.New(db, kv, cfg.Cache.UserTTL)
	st := store.NewGorm(db)
	resolver := privacy.NewResolver(db, users)

	var sender notify.Sender
	if cfg.Push.Enabled {
		sender = notify.NewExpoSender(logger)
	} else {
		sender = notify.NopSender{}
	}
	fanout := notify.New(db, kv, sender, logger, notify.Config{
		Buffer:    cfg.Notify.Buffer,
		DedupeTTL: cfg.Notify.DedupeTTL,
	})
	defer fanout.Stop()

	socialEngine := social.NewEngine(st, resolver, fanout, users, logger)
	clanEngine := clan.NewEngine(st, resolver, fanout, users, logger)
	ringsGateway := rings.NewGateway(db, resolver, logger)

	// ---- Background cleanup ----
	janitor := maintenance.New(db, logger)
	defer janitor.Stop()
	janitor.Every("notification_prune", time.Hour, func() {
		janitor.PruneNotifications(cfg.Notify.RetentionDays)
	})
	janitor.Every("invite_expiry", 6*time.Hour, func() {
		janitor.ExpireStaleInvites(cfg.Notify.InviteMaxAgeDays)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.RequestID(), mw.RequestLog(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, kv, cfg.Security)
	userH := apirest.NewUserHandler(db, users)
	socialH := apirest.NewSocialHandler(db, socialEngine)
	clanH := apirest.NewClanHandler(db, clanEngine)
	ringsH := apirest.NewRingsHandler(ringsGateway)
	notifH := apirest.NewNotificationHandler(db)

	auth := mw.Auth(cfg.Security, kv)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)
		authG.POST("/refresh", auth, authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(auth)
		usersG.GET("/me", userH.Me)
		usersG.PUT("/me", userH.UpdateProfile)
		usersG.PUT("/me/privacy", userH.UpdatePrivacy)
		usersG.GET("/search", userH.Search)
		usersG.GET("/:id/rings", ringsH.Range)
		usersG.GET("/:id/rings/:date", ringsH.Get)

		socialG := api.Group("/social")
		socialG.Use(auth)
		socialG.GET("/friends", socialH.ListFriends)
		socialG.DELETE("/friends/:id", socialH.RemoveFriend)
		socialG.PUT("/friends/:id/share", socialH.SetRingsShare)
		socialG.GET("/requests", socialH.ListRequests)
		socialG.POST("/requests", socialH.SendRequest)
		socialG.POST("/requests/:id/respond", socialH.Respond)
		socialG.DELETE("/requests/:id", socialH.Cancel)
		socialG.GET("/blocked", socialH.ListBlocked)
		socialG.POST("/block/:id", socialH.Block)
		socialG.DELETE("/block/:id", socialH.Unblock)

		clansG := api.Group("/clans")
		clansG.Use(auth)
		clansG.POST("", clanH.Create)
		clansG.GET("", clanH.Mine)
		clansG.GET("/invites", clanH.ListInvites)
		clansG.GET("/:id", clanH.Get)
		clansG.PUT("/:id", clanH.Update)
		clansG.POST("/:id/invites", clanH.Invite)
		clansG.POST("/:id/invites/respond", clanH.RespondInvite)
		clansG.POST("/:id/leave", clanH.Leave)
		clansG.DELETE("/:id/members/:uid", clanH.RemoveMember)
		clansG.PUT("/:id/members/:uid/role", clanH.UpdateRole)

		ringsG := api.Group("/rings")
		ringsG.Use(auth)
		ringsG.PUT("/:date", ringsH.Upsert)

		notifG := api.Group("/notifications")
		notifG.Use(auth)
		notifG.GET("", notifH.List)
		notifG.POST("/read-all", notifH.MarkAllRead)
		notifG.POST("/:id/read", notifH.MarkRead)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
