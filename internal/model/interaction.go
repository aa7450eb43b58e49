package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PosterPlaceholder 没有海报时使用的占位图
const PosterPlaceholder = "/no-movie.png"

// TrendingMovie 热搜记录，每个搜索词一条（区分大小写，不做 trim）
type TrendingMovie struct {
	ID         string    `json:"id" db:"id" bson:"_id" gorm:"primaryKey;size:36"`
	SearchTerm string    `json:"search_term" db:"search_term" bson:"searchTerm" gorm:"uniqueIndex;not null"`
	Count      int       `json:"count" db:"count" bson:"count" gorm:"index;not null;default:1"`
	MovieID    int       `json:"movie_id" db:"movie_id" bson:"movie_id"`
	PosterURL  string    `json:"poster_url" db:"poster_url" bson:"poster_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at" bson:"updatedAt"`
}

// TableName gorm 表名
func (TrendingMovie) TableName() string {
	return "trending_movies"
}

// BeforeCreate 未指定 ID 时生成 UUID
func (t *TrendingMovie) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
