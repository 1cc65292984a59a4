package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test-key", 2*time.Second)
	c.retryDelay = time.Millisecond
	c.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func fixtureBody(id int, league int) string {
	return fmt.Sprintf(`{"fixture": {"id": %d, "date": "2025-03-11T15:00:00+00:00", "status": {"short": "NS"}},
		"league": {"id": %d, "name": "League %d"},
		"teams": {"home": {"id": 1, "name": "Home FC"}, "away": {"id": 2, "name": "Away FC"}},
		"goals": {"home": null, "away": null}}`, id, league, league)
}

func TestGetFixture_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-apisports-key"))
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "99", r.URL.Query().Get("id"))
		fmt.Fprintf(w, `{"get": "fixtures", "errors": [], "results": 1, "response": [%s]}`, fixtureBody(99, 39))
	})

	fixture, err := c.GetFixture(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, 99, fixture.Fixture.ID)
	assert.Equal(t, "Home FC", fixture.Teams.Home.Name)
}

func TestGetFixture_EmptyResponseIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [], "results": 0, "response": []}`)
	})

	_, err := c.GetFixture(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGet_ErrorsFieldOnHTTP200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": {"rateLimit": "Too many requests"}, "results": 0, "response": []}`)
	})

	_, err := c.GetOdds(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rateLimit: Too many requests")
}

func TestApiErrors(t *testing.T) {
	assert.NoError(t, apiErrors(nil))
	assert.NoError(t, apiErrors([]byte(`[]`)))
	assert.NoError(t, apiErrors([]byte(`{}`)))
	assert.NoError(t, apiErrors([]byte(`null`)))
	assert.Error(t, apiErrors([]byte(`["bad season"]`)))
	assert.Error(t, apiErrors([]byte(`{"token": "missing"}`)))
}

func TestGet_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"errors": [], "response": []}`)
	})

	odds, err := c.GetOdds(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, odds)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_DoesNotRetryAuthFailure(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetPredictions(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetUpcomingFixtures_SkipsFailingLeague(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024", q.Get("season"))
		assert.Equal(t, "2025-03-10", q.Get("from"))
		assert.Equal(t, "2025-03-13", q.Get("to"))
		assert.Equal(t, "UTC", q.Get("timezone"))

		if q.Get("league") == "140" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"errors": [], "response": [%s, %s]}`, fixtureBody(1, 39), fixtureBody(2, 39))
	})

	fixtures, err := c.GetUpcomingFixtures(context.Background(), []int{39, 140}, 3)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, 1, fixtures[0].Fixture.ID)
	assert.Equal(t, 2, fixtures[1].Fixture.ID)
}

func TestGetUpcomingFixtures_DropsMalformedEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"errors": [], "response": [%s, {"fixture": {"id": 0}}]}`, fixtureBody(3, 39))
	})

	fixtures, err := c.GetUpcomingFixtures(context.Background(), []int{39}, 1)
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, 3, fixtures[0].Fixture.ID)
}

func TestGetUpcomingFixtures_AllLeaguesFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GetUpcomingFixtures(context.Background(), []int{39, 140}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 leagues")
}

func TestSeasonFor(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), 2025},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeasonFor(tt.date), tt.date.String())
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestGetOdds_UsesCache(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"errors": [], "response": [{"fixture": {"id": 7}, "bookmakers": [{"id": 1, "name": "Bet365", "bets": []}]}]}`)
	})
	cache := &mapCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	c.WithCache(cache, 5*time.Minute, 10*time.Minute)

	for i := 0; i < 2; i++ {
		odds, err := c.GetOdds(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, odds, 1)
		assert.Equal(t, "Bet365", odds[0].Bookmakers[0].Name)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 5*time.Minute, cache.ttls["apifootball:odds:7"])
}
