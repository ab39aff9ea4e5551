package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"matchsocial/backend/internal/auth"
	"matchsocial/backend/internal/config"
	"matchsocial/backend/internal/database"
	"matchsocial/backend/internal/handler"
	"matchsocial/backend/internal/hub"
	"matchsocial/backend/internal/logging"
	"matchsocial/backend/internal/social"

	// Swagger imports
	_ "matchsocial/backend/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           MatchSocial API
// @version         1.0
// @description     Friendships, direct messages and group feeds with live updates.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configDir string
	var reconcile bool

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&configDir, "config-dir", ".", "directory holding the .env file")
	flagSet.BoolVar(&reconcile, "reconcile", false, "recount post likes and comments, then exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	log := logging.New(cfg, os.Stdout)
	slog.SetDefault(log)
	if cfg.EnvFile == "" {
		log.Info(".env file not found, loading from environment variables")
	} else {
		log.Info("loaded configuration", "file", cfg.EnvFile)
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	h := hub.New(log, hub.WithQueueSize(cfg.HubQueueSize), hub.WithClientQueueSize(cfg.ClientQueueSize))
	defer h.Close()

	if rdb != nil {
		if err := h.AttachRelay(ctx, hub.NewRedisRelay(rdb, cfg.RedisChannel, log)); err != nil {
			return err
		}
		log.Info("redis relay attached", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	svc := social.New(db, h, log)

	if reconcile {
		drift, err := svc.Feed.Reconcile(ctx)
		if err != nil {
			return err
		}
		for _, d := range drift {
			log.Warn("repaired post counters", "post_id", d.PostID,
				"likes", d.LikesCount, "actual_likes", d.ActualLikes,
				"comments", d.CommentsCount, "actual_comments", d.ActualComments)
		}
		log.Info("reconcile finished", "repaired", len(drift))
		return nil
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logging.AccessLog(gin.DefaultWriter), gin.Recovery())

	origins := cfg.AllowedOrigins()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	var allowOrigin func(string) bool
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		allowOrigin = func(o string) bool { return slices.Contains(origins, o) }
	}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	handler.New(svc, h, log, allowOrigin).
		RegisterRoutes(router.Group("/api/v1"), auth.AuthMiddleware(cfg.JWTSecret))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server is running", "addr", cfg.HTTPAddr, "swagger", "/swagger/index.html")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
