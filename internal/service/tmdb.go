package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/user/moovie-pulse/internal/metrics"
	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/utils"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// MovieProvider 电影元数据提供方，两种请求都按热度倒序
type MovieProvider interface {
	Search(ctx context.Context, query string) ([]model.MovieSummary, error)
	Discover(ctx context.Context) ([]model.MovieSummary, error)
}

// TMDBConfig TMDB 客户端配置
type TMDBConfig struct {
	Token     string
	BaseURL   string
	RateLimit float64 // 每秒请求数，<=0 表示不限速
}

// sharedRequestTimeout 合并后的请求脱离调用方取消，用它兜底
const sharedRequestTimeout = 30 * time.Second

type TMDBService struct {
	client  *utils.HTTPClient
	baseURL string
	limiter *rate.Limiter
	cache   ResponseCache
	group   singleflight.Group
}

// NewTMDBService cache 可以为 nil
func NewTMDBService(cfg TMDBConfig, cache ResponseCache) *TMDBService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}
	return &TMDBService{
		client:  utils.NewHTTPClient(cfg.Token),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: limiter,
		cache:   cache,
	}
}

// Search 按关键词搜索电影
func (s *TMDBService) Search(ctx context.Context, query string) ([]model.MovieSummary, error) {
	params := url.Values{
		"query":   {query},
		"sort_by": {"popularity.desc"},
	}
	endpoint := s.baseURL + "/search/movie?" + params.Encode()
	return s.fetch(ctx, "search", "search:"+query, endpoint)
}

// Discover 默认热门列表
func (s *TMDBService) Discover(ctx context.Context) ([]model.MovieSummary, error) {
	endpoint := s.baseURL + "/discover/movie?sort_by=popularity.desc"
	return s.fetch(ctx, "discover", "discover", endpoint)
}

func (s *TMDBService) fetch(ctx context.Context, kind, cacheKey, endpoint string) ([]model.MovieSummary, error) {
	if s.cache != nil {
		if movies, ok := s.cache.Get(ctx, cacheKey); ok {
			metrics.ProviderCacheHitsTotal.Inc()
			return movies, nil
		}
	}

	// 使用 singleflight 合并同一时刻的相同请求。
	// 共享请求不继承任一调用方的取消，每个调用方只在自己的 ctx 结束时提前返回。
	ch := s.group.DoChan(cacheKey, func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRequestTimeout)
		defer cancel()

		movies, err := s.request(reqCtx, kind, endpoint)
		if err != nil {
			return nil, err
		}
		// 空结果和错误都不缓存
		if s.cache != nil && len(movies) > 0 {
			s.cache.Set(reqCtx, cacheKey, movies)
		}
		return movies, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("tmdb %s: %w", kind, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.MovieSummary), nil
	}
}

func (s *TMDBService) request(ctx context.Context, kind, endpoint string) ([]model.MovieSummary, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待限流失败: %w", err)
	}

	start := time.Now()
	var list model.MovieList
	err := s.client.GetJSON(ctx, endpoint, &list)
	metrics.ProviderRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(kind, "error").Inc()
		if ctx.Err() == nil {
			log.Printf("[TMDB] %s 请求失败: %v", kind, err)
		}
		return nil, fmt.Errorf("tmdb %s: %w", kind, err)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(kind, "ok").Inc()
	if list.Results == nil {
		list.Results = []model.MovieSummary{}
	}
	return list.Results, nil
}
