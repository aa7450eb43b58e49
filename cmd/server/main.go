package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/user/moovie-pulse/internal/config"
	"github.com/user/moovie-pulse/internal/handler"
	"github.com/user/moovie-pulse/internal/metrics"
	"github.com/user/moovie-pulse/internal/middleware"
	"github.com/user/moovie-pulse/internal/repository"
	"github.com/user/moovie-pulse/internal/router"
	"github.com/user/moovie-pulse/internal/service"
	"github.com/user/moovie-pulse/internal/telemetry"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "moovie-pulse")
	if err != nil {
		log.Printf("[Telemetry] 初始化失败: %v", err)
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// 初始化热搜存储
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("存储连接失败: %v", err)
	}
	defer closeStore()

	// 初始化服务
	tmdb := service.NewTMDBService(service.TMDBConfig{
		Token:     cfg.TMDBToken,
		BaseURL:   cfg.TMDBBaseURL,
		RateLimit: cfg.TMDBRateLimit,
	}, newResponseCache(cfg))

	ledger := service.NewLedger(store, service.LedgerConfig{
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Placeholder:  cfg.PosterPlaceholder,
		CacheTTL:     cfg.TrendingCacheTTL,
	})
	searcher := service.NewSearcher(tmdb, ledger)

	// 定时刷新热搜缓存和指标
	refresher := service.NewTrendingRefresher(ledger, cfg.TrendingLimit, cfg.TrendingRefresh)
	refresher.Start()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// WebSocket 和 /metrics 不压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws/", "/metrics"})))

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	h := handler.NewHandler(cfg, searcher, ledger)
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Println("服务器强制关闭:", err)
	}
	h.CloseSessions()
	refresher.Stop()

	// 等待还没写完的热搜记录
	searcher.Close()

	log.Println("服务器已退出")
}

// openStore 按 STORE_DRIVER 选择 Postgres 或 MongoDB
func openStore(cfg *config.Config) (service.PopularityStore, func(), error) {
	if cfg.StoreDriver == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := repository.ConnectMongo(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoPopularityRepository(client, cfg.MongoDatabase, cfg.MongoCollection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Printf("[Mongo] 创建索引失败: %v", err)
		}
		log.Printf("[Store] 使用 MongoDB %s.%s", cfg.MongoDatabase, cfg.MongoCollection)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Println("[Store] 使用 PostgreSQL")
	return repository.NewPopularityRepository(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}, nil
}

// newResponseCache 配置了 REDIS_URL 且可连通时用 Redis，否则用进程内 LRU
func newResponseCache(cfg *config.Config) service.ResponseCache {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("[Cache] REDIS_URL 无效，改用内存缓存: %v", err)
		} else {
			client := redis.NewClient(opts)
			if err := client.Ping(context.Background()).Err(); err != nil {
				log.Printf("[Cache] Redis 不可用，改用内存缓存: %v", err)
				_ = client.Close()
			} else {
				log.Printf("[Cache] Redis 已连接 %s", opts.Addr)
				return service.NewRedisResponseCache(client, cfg.ProviderCacheTTL)
			}
		}
	}

	cache, err := service.NewMemoryResponseCache(cfg.ProviderCacheSize, cfg.ProviderCacheTTL)
	if err != nil {
		log.Printf("[Cache] 内存缓存初始化失败，不缓存提供方响应: %v", err)
		return nil
	}
	return cache
}
