package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/user/moovie-pulse/internal/metrics"
)

// TrendingRefresher 定时预热热搜缓存并更新账本规模指标
type TrendingRefresher struct {
	ledger   *Ledger
	limit    int
	interval time.Duration

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewTrendingRefresher(ledger *Ledger, limit int, interval time.Duration) *TrendingRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TrendingRefresher{
		ledger:   ledger,
		limit:    limit,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动定时任务，启动时先运行一次
func (s *TrendingRefresher) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runRefresh()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runRefresh()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止定时任务
func (s *TrendingRefresher) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *TrendingRefresher) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries := s.ledger.ListTrending(ctx, s.limit)
	if size := s.ledger.Size(ctx); size >= 0 {
		metrics.LedgerEntries.Set(float64(size))
		log.Printf("[TrendingRefresher] 热搜已刷新: %d 条，共 %d 个搜索词", len(entries), size)
	}
}
