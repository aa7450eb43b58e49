package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/utils"
)

const searchBody = `{
  "page": 1,
  "results": [
    {"id": 438631, "title": "Dune", "poster_path": "/d5NXSklXo0qyIYkgV94XAgMIckC.jpg",
     "release_date": "2021-09-15", "vote_average": 7.8, "original_language": "en", "overview": "Paul Atreides..."},
    {"id": 841, "title": "Dune", "poster_path": null, "release_date": null, "vote_average": null,
     "original_language": "en", "overview": ""}
  ]
}`

func newTMDBServer(t *testing.T, hits *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTMDBService_Search(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "dune part two", r.URL.Query().Get("query"))
		assert.Equal(t, "popularity.desc", r.URL.Query().Get("sort_by"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(searchBody))
	})

	svc := NewTMDBService(TMDBConfig{Token: "test-token", BaseURL: srv.URL + "/"}, nil)
	movies, err := svc.Search(context.Background(), "dune part two")

	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, 438631, movies[0].ID)
	assert.Equal(t, "2021", movies[0].Year())
	assert.Equal(t, "7.8", movies[0].Rating())
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/d5NXSklXo0qyIYkgV94XAgMIckC.jpg",
		movies[0].PosterURL("https://image.tmdb.org/t/p/w500", "/no-movie.png"))

	assert.Nil(t, movies[1].PosterPath)
	assert.Nil(t, movies[1].ReleaseDate)
	assert.Nil(t, movies[1].VoteAverage)
	assert.Equal(t, "/no-movie.png", movies[1].PosterURL("https://image.tmdb.org/t/p/w500", "/no-movie.png"))
	assert.Equal(t, "N/A", movies[1].Year())
	assert.Equal(t, "N/A", movies[1].Rating())
	assert.Equal(t, "No description available.", movies[1].Description())
}

func TestTMDBService_Discover(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("query"))
		assert.Equal(t, "popularity.desc", r.URL.Query().Get("sort_by"))
		_, _ = w.Write([]byte(searchBody))
	})

	movies, err := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, nil).Discover(context.Background())

	require.NoError(t, err)
	assert.Len(t, movies, 2)
}

func TestTMDBService_EmptyResults(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"total_results":0}`))
	})

	movies, err := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, nil).Search(context.Background(), "qqqq")

	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
}

func TestTMDBService_StatusError(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	})

	_, err := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, nil).Search(context.Background(), "dune")

	require.Error(t, err)
	assert.True(t, utils.IsStatusError(err))
}

func TestTMDBService_CachesNonEmptyResults(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "nothing" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(searchBody))
	})

	cache, err := NewMemoryResponseCache(10, time.Minute)
	require.NoError(t, err)
	svc := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		movies, err := svc.Search(ctx, "dune")
		require.NoError(t, err)
		assert.Len(t, movies, 2)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	_, _ = svc.Search(ctx, "nothing")
	_, _ = svc.Search(ctx, "nothing")
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))

	// 区分大小写
	_, _ = svc.Search(ctx, "Dune")
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}

func TestTMDBService_CancelledContext(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, nil).Search(ctx, "slow")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestTMDBService_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(searchBody))
	})
	svc := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, nil)

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var secondMovies []model.MovieSummary
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Search(first, "dune")
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		secondMovies, secondErr = svc.Search(context.Background(), "dune")
	}()

	time.Sleep(100 * time.Millisecond)
	cancelFirst()
	wg.Wait()

	require.Error(t, firstErr)
	assert.ErrorIs(t, firstErr, context.Canceled)
	require.NoError(t, secondErr)
	assert.Len(t, secondMovies, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestTMDBService_SharedRequestFillsCacheAfterCallerLeaves(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(searchBody))
	})
	cache, err := NewMemoryResponseCache(10, time.Minute)
	require.NoError(t, err)
	svc := NewTMDBService(TMDBConfig{BaseURL: srv.URL}, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Search(ctx, "dune")
	require.Error(t, err)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "search:dune")
		return ok
	}, time.Second, 10*time.Millisecond)

	movies, err := svc.Search(context.Background(), "dune")
	require.NoError(t, err)
	assert.Len(t, movies, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}
