package service

import (
	"context"
	"log"
	"sync"

	"github.com/user/moovie-pulse/internal/model"
)

// Recorder 搜索成功后记录搜索词，实现方自行处理错误
type Recorder interface {
	Record(ctx context.Context, searchTerm string, top model.MovieSummary)
}

// Searcher 查询提供方并把结果归类为 success / empty / error
type Searcher struct {
	provider MovieProvider
	recorder Recorder

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

func NewSearcher(provider MovieProvider, recorder Recorder) *Searcher {
	return &Searcher{provider: provider, recorder: recorder}
}

// Fetch 空字符串走 discover，否则走 search；不记录搜索词
func (s *Searcher) Fetch(ctx context.Context, query string) model.SearchState {
	var (
		movies []model.MovieSummary
		err    error
	)
	if query == "" {
		movies, err = s.provider.Discover(ctx)
	} else {
		movies, err = s.provider.Search(ctx, query)
	}

	state := model.SearchState{Query: query, Results: []model.MovieSummary{}}
	switch {
	case err != nil:
		state.Status = model.StatusError
		state.Message = model.MessageFetchFailed
	case len(movies) == 0:
		state.Status = model.StatusEmpty
		state.Message = model.MessageNoMovies
	default:
		state.Status = model.StatusSuccess
		state.Results = movies
	}
	return state
}

// Search 查询一次，真实搜索成功时异步记录第一条结果
func (s *Searcher) Search(ctx context.Context, query string) model.SearchState {
	state := s.Fetch(ctx, query)
	s.RecordIfSearched(state)
	return state
}

// RecordIfSearched discover 结果和失败的请求都不计入热搜
func (s *Searcher) RecordIfSearched(state model.SearchState) {
	if state.Status != model.StatusSuccess || state.Query == "" || len(state.Results) == 0 {
		return
	}
	s.RecordAsync(state.Query, state.Results[0])
}

// RecordAsync 在独立的 goroutine 中记录，不等待、不影响调用方
func (s *Searcher) RecordAsync(searchTerm string, top model.MovieSummary) {
	if s.recorder == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tasks.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Searcher] 记录搜索词发生恐慌 (%q): %v", searchTerm, r)
			}
		}()
		s.recorder.Record(context.Background(), searchTerm, top)
	}()
}

// Wait 等待所有后台记录任务结束
func (s *Searcher) Wait() {
	s.tasks.Wait()
}

// Close 不再接受新的记录任务，并等待已有任务结束；关闭后 Search 仍可用
func (s *Searcher) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.tasks.Wait()
}
