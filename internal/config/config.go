package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 应用配置
type Config struct {
	Env         string `validate:"oneof=development production test"`
	Port        string `validate:"required,numeric"`
	CORSOrigins []string

	// 元数据提供方（TMDB）
	TMDBToken         string
	TMDBBaseURL       string  `validate:"required,url"`
	TMDBImageBaseURL  string  `validate:"required,url"`
	TMDBRateLimit     float64 `validate:"gt=0"`
	PosterPlaceholder string  `validate:"required"`

	// 实时搜索与热搜
	SearchDebounce   time.Duration `validate:"gt=0"`
	TrendingLimit    int           `validate:"min=1,max=20"`
	TrendingCacheTTL time.Duration `validate:"min=0"`
	TrendingRefresh  time.Duration `validate:"gt=0"`

	// 提供方响应缓存
	ProviderCacheSize int           `validate:"min=1"`
	ProviderCacheTTL  time.Duration `validate:"min=0"`
	RedisURL          string

	// 存储
	StoreDriver     string `validate:"oneof=postgres mongo"`
	DatabaseURL     string
	MongoURI        string `validate:"required_if=StoreDriver mongo"`
	MongoDatabase   string
	MongoCollection string
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "moovie")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	if getEnv("TMDB_TOKEN", "") == "" {
		fmt.Println("【警告】未设置 TMDB_TOKEN，电影搜索请求将被提供方拒绝。")
	}

	return &Config{
		Env:               getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "5005"),
		CORSOrigins:       splitAndTrim(getEnv("CORS_ORIGINS", "*")),
		TMDBToken:         getEnv("TMDB_TOKEN", ""),
		TMDBBaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL:  getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/w500"),
		TMDBRateLimit:     getEnvFloat("TMDB_RATE_LIMIT", 20),
		PosterPlaceholder: getEnv("POSTER_PLACEHOLDER", "/no-movie.png"),
		SearchDebounce:    time.Duration(getEnvInt("SEARCH_DEBOUNCE_MS", 500)) * time.Millisecond,
		TrendingLimit:     getEnvInt("TRENDING_LIMIT", 5),
		TrendingCacheTTL:  time.Duration(getEnvInt("TRENDING_CACHE_TTL_SECONDS", 60)) * time.Second,
		TrendingRefresh:   time.Duration(getEnvInt("TRENDING_REFRESH_SECONDS", 300)) * time.Second,
		ProviderCacheSize: getEnvInt("PROVIDER_CACHE_SIZE", 500),
		ProviderCacheTTL:  time.Duration(getEnvInt("PROVIDER_CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisURL:          getEnv("REDIS_URL", ""),
		StoreDriver:       getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:       getEnv("DATABASE_URL", dbURL),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DATABASE", "moovie"),
		MongoCollection:   getEnv("MONGO_COLLECTION", "trending_movies"),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
