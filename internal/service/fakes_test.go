package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/user/moovie-pulse/internal/model"
)

func strPtr(s string) *string { return &s }

func movie(id int, title, poster string) model.MovieSummary {
	m := model.MovieSummary{ID: id, Title: title}
	if poster != "" {
		m.PosterPath = strPtr(poster)
	}
	return m
}

// --- fake provider ---

type providerCall struct {
	Kind  string
	Query string
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   []providerCall
	results map[string][]model.MovieSummary
	err     error
	// gate 非空时，对应查询会阻塞到 gate 关闭或 ctx 取消
	gates map[string]chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		results: map[string][]model.MovieSummary{},
		gates:   map[string]chan struct{}{},
	}
}

func (p *fakeProvider) Search(ctx context.Context, query string) ([]model.MovieSummary, error) {
	return p.do(ctx, "search", query)
}

func (p *fakeProvider) Discover(ctx context.Context) ([]model.MovieSummary, error) {
	return p.do(ctx, "discover", "")
}

func (p *fakeProvider) do(ctx context.Context, kind, query string) ([]model.MovieSummary, error) {
	p.mu.Lock()
	p.calls = append(p.calls, providerCall{Kind: kind, Query: query})
	gate := p.gates[query]
	res, err := p.results[query], p.err
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *fakeProvider) Calls() []providerCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]providerCall(nil), p.calls...)
}

// --- fake recorder ---

type recordCall struct {
	Term string
	Top  model.MovieSummary
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordCall
}

func (r *fakeRecorder) Record(_ context.Context, searchTerm string, top model.MovieSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordCall{Term: searchTerm, Top: top})
}

func (r *fakeRecorder) Calls() []recordCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordCall(nil), r.calls...)
}

// --- in-memory store, read-then-write only ---

type memoryStore struct {
	mu      sync.Mutex
	nextID  int
	entries map[string]*model.TrendingMovie
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]*model.TrendingMovie{}}
}

func (s *memoryStore) Find(_ context.Context, searchTerm string) (*model.TrendingMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[searchTerm]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memoryStore) Update(_ context.Context, id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.Count = count
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memoryStore) Insert(_ context.Context, entry *model.TrendingMovie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.SearchTerm]; ok {
		return errors.New("duplicate search term")
	}
	s.nextID++
	cp := *entry
	cp.ID = strconv.Itoa(s.nextID)
	s.entries[entry.SearchTerm] = &cp
	return nil
}

func (s *memoryStore) ListTopByCount(_ context.Context, limit int) ([]*model.TrendingMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.TrendingMovie, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// --- testify mock store, used for failure paths ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Find(ctx context.Context, searchTerm string) (*model.TrendingMovie, error) {
	args := m.Called(ctx, searchTerm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrendingMovie), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id string, count int) error {
	return m.Called(ctx, id, count).Error(0)
}

func (m *mockStore) Insert(ctx context.Context, entry *model.TrendingMovie) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockStore) ListTopByCount(ctx context.Context, limit int) ([]*model.TrendingMovie, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TrendingMovie), args.Error(1)
}
