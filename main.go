package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/fitquest/fitquest/api/rest"
	"github.com/fitquest/fitquest/api/sse"
	"github.com/fitquest/fitquest/audit"
	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/config"
	dbadapter "github.com/fitquest/fitquest/db"
	"github.com/fitquest/fitquest/game/battle"
	"github.com/fitquest/fitquest/game/dungeon"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
	"github.com/fitquest/fitquest/scheduler"
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

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
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

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.New(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Game services ----
	store := battle.NewSQLStore(db)
	engine := battle.NewEngine(store, store, logger)
	engine.GuardManaGain = cfg.Game.GuardManaGain
	dungeonSvc := dungeon.NewService(db, logger)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)

	// ---- REST handlers ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	userH := apirest.NewUserHandler(db)
	charH := apirest.NewCharacterHandler(db, cfg.Game)
	skillH := apirest.NewSkillHandler(db)
	itemH := apirest.NewItemHandler(db)
	monsterH := apirest.NewMonsterHandler(db)
	challengeH := apirest.NewChallengeHandler(db, cfg.Game)
	battleH := apirest.NewBattleHandler(db, engine, store, sseH, logger)
	dungeonH := apirest.NewDungeonHandler(db, dungeonSvc)
	rankH := apirest.NewRankingHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, sched, logger)

	// ---- Periodic tasks ----
	sched.AddTicker("ranking_refresh", cfg.Game.RankingRefresh, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := rankH.RefreshNow(ctx); err != nil {
			logger.Warn("ranking refresh failed", zap.Error(err))
		}
	})
	sched.AddTicker("request_cleanup", time.Hour, func() {
		cutoff := time.Now().Add(-cfg.Game.RequestMaxAge)
		result := db.Where("created_at < ?", cutoff).Delete(&model.BattleRequest{})
		if result.Error != nil {
			logger.Warn("battle request cleanup failed", zap.Error(result.Error))
		} else if result.RowsAffected > 0 {
			logger.Info("stale battle requests removed", zap.Int64("count", result.RowsAffected))
		}
	})

	// ---- Gin HTTP server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	r.Use(mw.Audit(auditSvc))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	auth := mw.Auth(cfg.Security, c)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)
		authG.POST("/refresh", auth, authH.Refresh)

		usersG := api.Group("/users", auth)
		usersG.GET("/me", userH.Me)
		usersG.PUT("/me", userH.Update)
		usersG.GET("/me/skillpoints", userH.Skillpoints)
		usersG.GET("/username/:username", userH.GetByUsername)
		usersG.GET("/:id", userH.Get)

		charsG := api.Group("/characters", auth)
		charsG.GET("", charH.List)
		charsG.POST("", charH.Create)
		charsG.GET("/:id", charH.Get)
		charsG.GET("/:id/stats", charH.Stats)
		charsG.POST("/:id/recover", charH.Recover)
		charsG.GET("/:id/skills", charH.OwnedSkills)
		charsG.GET("/:id/items", charH.Inventory)
		charsG.DELETE("/:id/items/:ownership_id", charH.DeleteItem)
		charsG.GET("/:id/battle", battleH.GetByCharacter)
		charsG.GET("/:id/equipment", charH.Equipment)
		charsG.POST("/:id/equip", charH.Equip)
		charsG.POST("/:id/unequip", charH.Unequip)
		charsG.POST("/:id/use", charH.UsePotion)

		skillsG := api.Group("/skills", auth)
		skillsG.GET("", skillH.List)
		skillsG.GET("/:id", skillH.Get)
		skillsG.GET("/:id/effects", skillH.ListEffects)
		skillsG.POST("/:id/purchase", skillH.Purchase)

		itemsG := api.Group("/items", auth)
		itemsG.GET("", itemH.List)
		itemsG.GET("/:id", itemH.Get)

		monstersG := api.Group("/monsters", auth)
		monstersG.GET("", monsterH.List)
		monstersG.GET("/:id", monsterH.Get)

		challengesG := api.Group("/challenges", auth)
		challengesG.GET("", challengeH.List)
		challengesG.GET("/popular", challengeH.Popular)
		challengesG.GET("/recent", challengeH.Recent)
		challengesG.GET("/top-rated", challengeH.TopRated)
		challengesG.GET("/completions", challengeH.MyCompletions)
		challengesG.POST("", challengeH.Create)
		challengesG.GET("/:id", challengeH.Get)
		challengesG.PUT("/:id", challengeH.Update)
		challengesG.DELETE("/:id", challengeH.Delete)
		challengesG.POST("/:id/completions", challengeH.Complete)
		challengesG.GET("/:id/completions", challengeH.ListCompletions)
		challengesG.POST("/:id/reviews", challengeH.CreateReview)
		challengesG.PUT("/:id/reviews", challengeH.UpdateReview)
		challengesG.GET("/:id/reviews", challengeH.ListReviews)
		challengesG.DELETE("/:id/reviews", challengeH.DeleteReview)

		battlesG := api.Group("/battles", auth)
		battlesG.POST("/requests", battleH.Request)
		battlesG.GET("/requests", battleH.ListRequests)
		battlesG.DELETE("/requests/:id", battleH.CancelRequest)
		battlesG.POST("/requests/:id/accept", battleH.Accept)
		battlesG.GET("/:id", battleH.Get)
		battlesG.POST("/:id/skill", battleH.UseSkill)
		battlesG.POST("/:id/guard", battleH.Guard)
		battlesG.POST("/:id/forfeit", battleH.Forfeit)

		dungeonsG := api.Group("/dungeons", auth)
		dungeonsG.GET("", dungeonH.List)
		dungeonsG.GET("/:id", dungeonH.Get)
		dungeonsG.POST("/:id/explore", dungeonH.Explore)

		rankG := api.Group("/ranking", auth)
		rankG.GET("/skillpoints", rankH.TopSkillpoints)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminAllowedIPs))
		adminG.Use(mw.AdminKey(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.GET("/audit", adminH.AuditQuery)
		adminG.POST("/ranking/refresh", rankH.Refresh)
		adminG.POST("/skills", skillH.Create)
		adminG.PUT("/skills/:id", skillH.Update)
		adminG.POST("/skills/:id/effects", skillH.AddEffect)
		adminG.PUT("/skills/:id/effects/:effect_id", skillH.UpdateEffect)
		adminG.DELETE("/skills/:id/effects/:effect_id", skillH.DeleteEffect)
		adminG.POST("/items", itemH.Create)
		adminG.PUT("/items/:id", itemH.Update)
		adminG.POST("/monsters", monsterH.Create)
		adminG.POST("/dungeons", dungeonH.Create)
		adminG.PUT("/dungeons/:id", dungeonH.Update)
	}

	// ---- SSE ----
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
