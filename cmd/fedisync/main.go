package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/cache"
	"sudooom.fedi.sync/internal/config"
	"sudooom.fedi.sync/internal/conversation"
	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/handler"
	"sudooom.fedi.sync/internal/health"
	"sudooom.fedi.sync/internal/jwt"
	"sudooom.fedi.sync/internal/metrics"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/internal/router"
	"sudooom.fedi.sync/internal/thread"
	"sudooom.fedi.sync/internal/usecase"
	"sudooom.fedi.sync/pkg/snowflake"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化雪花ID生成器
	sfNode, err := snowflake.NewNode(cfg.App.NodeID)
	if err != nil {
		logger.Error("Failed to create snowflake node", "error", err)
		os.Exit(1)
	}

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 本地存储
	notifier := repository.NewNotifier()
	var (
		store repository.Store
		db    *pgxpool.Pool
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

		pg := repository.NewPostgresStore(db, notifier)
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		store = pg
	default:
		store = repository.NewMemoryStore(notifier)
		logger.Info("Using in-memory store")
	}

	// 导入账号
	if cfg.AccountsFile != "" {
		if err := importAccounts(ctx, cfg.AccountsFile, sfNode, store); err != nil {
			logger.Error("Failed to import accounts", "file", cfg.AccountsFile, "error", err)
			os.Exit(1)
		}
	}

	// 翻译缓存
	var (
		translations cache.TranslationCache
		redisClient  *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = connectRedis(cfg.Redis)
		defer redisClient.Close()
		translations = cache.NewRedisTranslationCache(redisClient, cfg.Translation.CacheTTL)
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr())
	} else {
		translations = cache.NewMemoryTranslationCache(cfg.Translation.CacheTTL)
	}

	// 事件总线
	hub := events.NewHub(m)
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = events.Connect(cfg.NATS, cfg.App.Name)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer events.Drain(natsConn)

		bridge := events.NewBridge(natsConn, hub, fmt.Sprintf("%s-%s", cfg.App.Name, uuid.NewString()))
		if err := bridge.Start(func(id model.AccountID) { notifier.NotifyLocal(id) }); err != nil {
			logger.Error("Failed to start event bridge", "error", err)
			os.Exit(1)
		}
		defer bridge.Stop()
		notifier.SetForwarder(bridge.PublishInvalidation)
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	// 上游客户端
	clients := api.NewPool(api.Config{
		Timeout:           cfg.API.Timeout,
		UserAgent:         cfg.API.UserAgent,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	}, m)

	// 初始化服务
	cases := usecase.NewTimelineCases(hub, store, translations, cfg.Translation.TargetLanguage)
	repo := conversation.NewRepository(store, func(account *model.Account) (conversation.Client, error) {
		c, err := clients.Client(account)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, paging.Config{
		PageSize:           cfg.Paging.PageSize,
		InitialLoadSize:    cfg.Paging.InitialLoadSize,
		EnablePlaceholders: cfg.Paging.EnablePlaceholders,
	}, m)
	defer repo.Close()

	conversationService := conversation.NewService(repo, store, cases, hub, translations, m)
	threads := thread.NewFactory(store.Account, func(ctx context.Context, id model.AccountID) (thread.API, error) {
		return repo.Client(ctx, id)
	}, store, cases, hub)

	// 初始化 Handler
	jwtService := jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.AccessExpire)
	r := router.SetupRouter(cfg, jwtService, router.Handlers{
		Auth:         handler.NewAuthHandler(store, jwtService),
		Conversation: handler.NewConversationHandler(conversationService),
		Status:       handler.NewStatusHandler(conversationService),
		Thread:       handler.NewThreadHandler(threads, cfg.HTTP.ThreadTimeout),
		Event:        handler.NewEventHandler(hub),
	})

	// 启动健康检查 HTTP 服务
	healthChecker := health.NewChecker(cfg.App.Name, db, redisClient, natsConn, store)
	healthServer := newHealthServer(cfg.Health.Port, healthChecker, registry)
	go func() {
		logger.Info("Health check server started", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed", "error", err)
		}
	}()

	// 启动服务器
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server started", "addr", server.Addr, "mode", cfg.HTTP.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", "error", err)
	}
	cancel()
	logger.Info("Server stopped")
}

// importAccounts 把账号文件写入本地存储
func importAccounts(ctx context.Context, path string, node *snowflake.Node, store repository.Store) error {
	accounts, err := config.LoadAccounts(path, node)
	if err != nil {
		return err
	}
	for i := range accounts {
		if err := store.UpsertAccount(ctx, &accounts[i]); err != nil {
			return err
		}
		slog.Info("Imported account", "accountId", accounts[i].ID, "account", accounts[i].FullName())
	}
	return nil
}

// newHealthServer 健康检查与指标服务
func newHealthServer(port int, checker *health.Checker, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/health", checker)
	mux.Handle("/ready", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	// 未配置的项沿用 pgxpool 的默认值
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
