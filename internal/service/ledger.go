package service

import (
	"context"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/user/moovie-pulse/internal/metrics"
	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/utils"
)

// DefaultTrendingLimit 热搜默认条数
const DefaultTrendingLimit = 5

// PopularityStore 热搜记录存储
type PopularityStore interface {
	Find(ctx context.Context, searchTerm string) (*model.TrendingMovie, error)
	Update(ctx context.Context, id string, count int) error
	Insert(ctx context.Context, entry *model.TrendingMovie) error
	ListTopByCount(ctx context.Context, limit int) ([]*model.TrendingMovie, error)
}

// AtomicIncrementer 支持服务端原子累加的存储
type AtomicIncrementer interface {
	IncrementOrCreate(ctx context.Context, entry *model.TrendingMovie) error
}

// EntryCounter 支持统计记录总数的存储
type EntryCounter interface {
	Count(ctx context.Context) (int64, error)
}

// LedgerConfig 热搜账本配置
type LedgerConfig struct {
	ImageBaseURL string
	Placeholder  string
	CacheTTL     time.Duration // <=0 不缓存热搜列表
}

// Ledger 热搜账本：记录成功的搜索词并按次数排行
// 所有存储错误都在这里消化，不会传给调用方
type Ledger struct {
	store        PopularityStore
	imageBaseURL string
	placeholder  string
	cache        *utils.TTLCache[[]*model.TrendingMovie]
}

func NewLedger(store PopularityStore, cfg LedgerConfig) *Ledger {
	placeholder := cfg.Placeholder
	if placeholder == "" {
		placeholder = model.PosterPlaceholder
	}
	l := &Ledger{
		store:        store,
		imageBaseURL: cfg.ImageBaseURL,
		placeholder:  placeholder,
	}
	if cfg.CacheTTL > 0 {
		l.cache = utils.NewTTLCache[[]*model.TrendingMovie](cfg.CacheTTL)
	}
	return l
}

// Record 记录一次成功的搜索
// 已有记录只把 count 加一，movie_id 和 poster_url 保持首次写入的值。
// 存储不支持原子累加时走“先查后写”，同一搜索词的并发请求可能丢失一次计数，
// 极端情况下可能插入重复记录（postgres/mongo 的唯一索引会拒绝第二次插入）。
// 写入后清空热搜缓存；与之并发的 ListTrending 可能把写入前的旧排行重新放回缓存，
// 旧排行最多保留一个 CacheTTL。
func (l *Ledger) Record(ctx context.Context, searchTerm string, top model.MovieSummary) {
	outcome, err := l.record(ctx, searchTerm, top)
	if err != nil {
		metrics.LedgerRecordsTotal.WithLabelValues("failed").Inc()
		log.Printf("[Ledger] 更新搜索次数失败 (%q): %v", searchTerm, err)
		return
	}
	metrics.LedgerRecordsTotal.WithLabelValues(outcome).Inc()
	if l.cache != nil {
		l.cache.Flush()
	}
}

func (l *Ledger) record(ctx context.Context, searchTerm string, top model.MovieSummary) (string, error) {
	if inc, ok := l.store.(AtomicIncrementer); ok {
		return "upserted", inc.IncrementOrCreate(ctx, l.newEntry(searchTerm, top))
	}

	existing, err := l.store.Find(ctx, searchTerm)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "incremented", l.store.Update(ctx, existing.ID, existing.Count+1)
	}
	return "created", l.store.Insert(ctx, l.newEntry(searchTerm, top))
}

func (l *Ledger) newEntry(searchTerm string, top model.MovieSummary) *model.TrendingMovie {
	return &model.TrendingMovie{
		SearchTerm: searchTerm,
		Count:      1,
		MovieID:    top.ID,
		PosterURL:  top.PosterURL(l.imageBaseURL, l.placeholder),
	}
}

// ListTrending 按次数倒序返回前 limit 条，出错时返回空列表
// 每次返回新的副本，调用方可以随意修改
func (l *Ledger) ListTrending(ctx context.Context, limit int) []*model.TrendingMovie {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	cacheKey := "trending:" + strconv.Itoa(limit)
	if l.cache != nil {
		if entries, ok := l.cache.Get(cacheKey); ok {
			return cloneEntries(entries)
		}
	}

	entries, err := l.store.ListTopByCount(ctx, limit)
	if err != nil {
		log.Printf("[Ledger] 获取热搜失败: %v", err)
		return []*model.TrendingMovie{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []*model.TrendingMovie{}
	}

	if l.cache != nil {
		l.cache.Set(cacheKey, cloneEntries(entries))
	}
	return entries
}

// cloneEntries 缓存中的记录不对外暴露
func cloneEntries(entries []*model.TrendingMovie) []*model.TrendingMovie {
	out := make([]*model.TrendingMovie, len(entries))
	for i, e := range entries {
		c := *e
		out[i] = &c
	}
	return out
}

// Size 账本中的搜索词数量，存储不支持时返回 -1
func (l *Ledger) Size(ctx context.Context) int64 {
	counter, ok := l.store.(EntryCounter)
	if !ok {
		return -1
	}
	n, err := counter.Count(ctx)
	if err != nil {
		log.Printf("[Ledger] 统计记录数失败: %v", err)
		return -1
	}
	return n
}
