// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erasmus-atlas/api"
	"erasmus-atlas/internal/apiserver/auth"
	"erasmus-atlas/internal/apiserver/post"
	"erasmus-atlas/internal/apiserver/server"
	"erasmus-atlas/internal/config"
	"erasmus-atlas/internal/shared/cache"
	redisstore "erasmus-atlas/internal/shared/cache/redis"
	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/objstore"
	"erasmus-atlas/internal/shared/storage/repository"
	"erasmus-atlas/pkg/logging"
)

func main() {
	configDir := flag.String("config", "", "config directory containing {env}.yaml (default: CONFIG_DIR or ./configs)")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	// 加载配置（.env.{env} + configs/{env}.yaml + 环境变量）
	cfg := config.Load()
	if err := cfg.RequireSecrets(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "api-server",
	})
	// 各 handler 的 log.Printf 也经由 slog 输出
	slog.SetDefault(logger.Logger)

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc, err := server.LoadOpenAPI(ctx, api.OpenAPISpec)
	if err != nil {
		log.Fatalf("Invalid OpenAPI document: %v", err)
	}
	log.Printf("OpenAPI document %s validated (%d paths)", doc.Info.Version, doc.Paths.Len())

	// 初始化数据库（PostgreSQL/PostGIS 或 SQLite），启动时执行幂等迁移
	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.DatabaseDriver, err)
	}
	defer store.Close()
	log.Printf("Connected to %s", cfg.DatabaseDriver)

	// 登录失败计数：未配置 Redis 时不限制
	var attempts cache.Cache = cache.NewNoOpCache()
	if cfg.RedisURL != "" {
		rs, err := redisstore.NewStoreFromURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		attempts = rs
		log.Println("Connected to Redis")
	}
	defer attempts.Close()

	h := server.NewHandler(store, attempts, server.Options{
		Auth: auth.Config{JWTSecret: cfg.Auth.JWTSecret, TokenTTL: cfg.Auth.TokenTTL},
		Throttle: auth.ThrottleConfig{
			MaxFailures: cfg.Auth.LoginMaxFailures,
			Window:      cfg.Auth.LoginFailureWindow,
		},
		Posts: post.Config{
			InitialStatus: model.PostStatus(cfg.Posts.InitialStatus),
			ListMode:      model.ListMode(cfg.Posts.ListMode),
			MaxListLimit:  cfg.Posts.MaxListLimit,
		},
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		AuthRateLimit:  cfg.RateLimit.AuthRequests,
		AuthRateWindow: cfg.RateLimit.AuthWindow,
	})
	h.SetLogger(logger)
	h.SetOpenAPI(api.OpenAPISpec)

	dbLog := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "db"})
	store.SetQueryObserver(func(op, table string, d time.Duration, err error) {
		dbLog.DBQueryLog(op, table, d, err)
		h.GetMetrics().RecordDBQuery(op, table, d, err)
	})

	// 帖子图片：未配置 MinIO 时不注册图片路由
	if cfg.MinIO.Endpoint != "" {
		images, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to create MinIO client: %v", err)
		}
		if err := images.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to prepare MinIO bucket: %v", err)
		}
		h.SetImageStore(images)
		log.Printf("Connected to MinIO %s", cfg.MinIO.Endpoint)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
