package model

import (
	"fmt"
	"strings"
)

// MovieSummary 元数据提供方返回的电影摘要（字段名与 TMDB 保持一致）
type MovieSummary struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	PosterPath       *string  `json:"poster_path"`
	ReleaseDate      *string  `json:"release_date"`
	VoteAverage      *float64 `json:"vote_average"`
	OriginalLanguage string   `json:"original_language"`
	Overview         string   `json:"overview"`
}

// PosterURL 拼接海报地址，没有海报时返回占位图
func (m MovieSummary) PosterURL(imageBaseURL, placeholder string) string {
	if m.PosterPath == nil || *m.PosterPath == "" {
		return placeholder
	}
	return strings.TrimRight(imageBaseURL, "/") + *m.PosterPath
}

// Year 上映年份，未知时返回 N/A
func (m MovieSummary) Year() string {
	if m.ReleaseDate == nil || *m.ReleaseDate == "" {
		return "N/A"
	}
	return strings.SplitN(*m.ReleaseDate, "-", 2)[0]
}

// Rating 评分保留一位小数，0 或缺失视为 N/A
func (m MovieSummary) Rating() string {
	if m.VoteAverage == nil || *m.VoteAverage == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *m.VoteAverage)
}

// Description 简介，为空时给出默认文案
func (m MovieSummary) Description() string {
	if strings.TrimSpace(m.Overview) == "" {
		return "No description available."
	}
	return m.Overview
}

// MovieList 提供方列表响应
type MovieList struct {
	Page    int            `json:"page"`
	Results []MovieSummary `json:"results"`
}
