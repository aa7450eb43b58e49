package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/moovie-pulse/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PopularityRepository 基于 gorm 的热搜记录存储
type PopularityRepository struct {
	db *gorm.DB
}

func NewPopularityRepository(db *gorm.DB) *PopularityRepository {
	return &PopularityRepository{db: db}
}

// Find 按搜索词精确查找，不存在返回 nil
func (r *PopularityRepository) Find(ctx context.Context, searchTerm string) (*model.TrendingMovie, error) {
	var entry model.TrendingMovie
	err := r.db.WithContext(ctx).
		Where("search_term = ?", searchTerm).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Update 只更新计数
func (r *PopularityRepository) Update(ctx context.Context, id string, count int) error {
	return r.db.WithContext(ctx).
		Model(&model.TrendingMovie{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"count":      count,
			"updated_at": time.Now(),
		}).Error
}

// Insert 新建记录
func (r *PopularityRepository) Insert(ctx context.Context, entry *model.TrendingMovie) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListTopByCount 按计数倒序取前 limit 条
func (r *PopularityRepository) ListTopByCount(ctx context.Context, limit int) ([]*model.TrendingMovie, error) {
	var entries []*model.TrendingMovie
	err := r.db.WithContext(ctx).
		Order("count DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// IncrementOrCreate 原子地累加计数，不存在则插入
// 冲突时只改 count 和 updated_at，movie_id/poster_url 保留首次写入的值
func (r *PopularityRepository) IncrementOrCreate(ctx context.Context, entry *model.TrendingMovie) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "search_term"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("trending_movies.count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(entry).Error
}

// Count 记录总数
func (r *PopularityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TrendingMovie{}).Count(&count).Error
	return count, err
}
