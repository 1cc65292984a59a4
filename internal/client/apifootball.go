package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the API answers successfully but without the requested fixture
var ErrNotFound = errors.New("fixture not found")

// ResponseCache stores raw response payloads between calls.
// Implementations report a miss with ok == false and a nil error.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client is the API-Football client
type Client struct {
	baseURL     string
	apiKey      string
	timezone    string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration

	cache    ResponseCache
	oddsTTL  time.Duration
	statsTTL time.Duration

	now func() time.Time
}

// NewClient creates a new API-Football client.
// timeout bounds every single request, retries included separately.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	// Create rate limiter (max 10 concurrent requests)
	rateLimiter := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		timezone:    "UTC",
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		now:         time.Now,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithCache enables caching of odds and statistics payloads
func (c *Client) WithCache(cache ResponseCache, oddsTTL, statsTTL time.Duration) *Client {
	c.cache = cache
	c.oddsTTL = oddsTTL
	c.statsTTL = statsTTL
	return c
}

// WithTimezone sets the timezone passed to the fixtures endpoint
func (c *Client) WithTimezone(tz string) *Client {
	if tz != "" {
		c.timezone = tz
	}
	return c
}

// envelope is the common API-Football response wrapper
type envelope struct {
	Get      string          `json:"get"`
	Errors   json.RawMessage `json:"errors"`
	Results  int             `json:"results"`
	Response json.RawMessage `json:"response"`
}

// get performs a GET request with retry logic and rate limiting and returns the "response" payload
func (c *Client) get(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", reqURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		payload, retry, err := c.do(ctx, path, reqURL, params, attempt)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// do performs a single attempt. retry reports whether the failure is worth another attempt.
func (c *Client) do(ctx context.Context, path, reqURL string, params map[string]string, attempt int) (json.RawMessage, bool, error) {
	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aibets-predictor/1.0")

	if len(params) > 0 {
		q := url.Values{}
		for key, value := range params {
			q.Set(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", reqURL).
		Str("query", req.URL.RawQuery).
		Int("attempt", attempt+1).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(path, "network_error", time.Since(start).Seconds())
		// Retry on network errors
		return nil, true, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, false, fmt.Errorf("failed to decode API envelope: %w", err)
		}
		// API-Football reports quota and parameter problems with a 200 status
		if err := apiErrors(env.Errors); err != nil {
			return nil, false, err
		}
		log.Debug().
			Str("url", reqURL).
			Int("results", env.Results).
			Int("size", len(body)).
			Msg("API request successful")
		return env.Response, false, nil

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error, will retry")
		return nil, true, fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))

	case http.StatusUnauthorized, http.StatusForbidden:
		// Don't retry auth errors
		return nil, false, fmt.Errorf("API authentication failed (status %d): %s", resp.StatusCode, string(body))

	default:
		return nil, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
}

// apiErrors converts the envelope's errors field into an error.
// The field is an empty array when there are none and an object keyed by parameter otherwise.
func apiErrors(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("API returned unreadable errors field: %s", string(raw))
	}

	switch e := v.(type) {
	case nil:
		return nil
	case []interface{}:
		if len(e) == 0 {
			return nil
		}
		parts := make([]string, 0, len(e))
		for _, item := range e {
			parts = append(parts, fmt.Sprint(item))
		}
		return fmt.Errorf("API returned errors: %s", strings.Join(parts, "; "))
	case map[string]interface{}:
		if len(e) == 0 {
			return nil
		}
		keys := make([]string, 0, len(e))
		for k := range e {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, e[k]))
		}
		return fmt.Errorf("API returned errors: %s", strings.Join(parts, "; "))
	default:
		return fmt.Errorf("API returned errors: %v", e)
	}
}

// SeasonFor returns the API-Football season year for t.
// European seasons start in August and are named after their first year.
func SeasonFor(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year()
	}
	return t.Year() - 1
}

// GetUpcomingFixtures fetches fixtures for each league from today through daysAhead days.
// Leagues are requested one at a time; a failing league is logged and skipped.
func (c *Client) GetUpcomingFixtures(ctx context.Context, leagueIDs []int, daysAhead int) ([]models.FixtureResponse, error) {
	now := c.now().UTC()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, daysAhead).Format("2006-01-02")
	season := strconv.Itoa(SeasonFor(now))

	var (
		fixtures []models.FixtureResponse
		failed   int
		lastErr  error
	)

	for _, leagueID := range leagueIDs {
		payload, err := c.get(ctx, "fixtures", map[string]string{
			"league":   strconv.Itoa(leagueID),
			"season":   season,
			"from":     from,
			"to":       to,
			"timezone": c.timezone,
		})
		if err == nil {
			var batch []models.FixtureResponse
			if err = json.Unmarshal(payload, &batch); err == nil {
				fixtures = append(fixtures, validFixtures(batch, leagueID)...)
				log.Debug().Int("league_id", leagueID).Int("count", len(batch)).Msg("Fetched league fixtures")
				continue
			}
			err = fmt.Errorf("failed to unmarshal fixtures: %w", err)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		failed++
		lastErr = err
		log.Error().Err(err).Int("league_id", leagueID).Msg("Failed to fetch fixtures for league")
	}

	if len(leagueIDs) > 0 && failed == len(leagueIDs) {
		return nil, fmt.Errorf("failed to fetch fixtures for all %d leagues: %w", failed, lastErr)
	}

	return fixtures, nil
}

func validFixtures(batch []models.FixtureResponse, leagueID int) []models.FixtureResponse {
	out := batch[:0]
	for _, fr := range batch {
		if err := fr.Validate(); err != nil {
			log.Warn().Err(err).Int("league_id", leagueID).Msg("Skipping malformed fixture")
			continue
		}
		out = append(out, fr)
	}
	return out
}

// GetFixture fetches a single fixture by id
func (c *Client) GetFixture(ctx context.Context, fixtureID int) (*models.FixtureResponse, error) {
	payload, err := c.get(ctx, "fixtures", map[string]string{"id": strconv.Itoa(fixtureID)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixture %d: %w", fixtureID, err)
	}

	var fixtures []models.FixtureResponse
	if err := json.Unmarshal(payload, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture %d: %w", fixtureID, err)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("fixture %d: %w", fixtureID, ErrNotFound)
	}
	if err := fixtures[0].Validate(); err != nil {
		return nil, err
	}

	return &fixtures[0], nil
}

// GetOdds fetches bookmaker odds for a fixture
func (c *Client) GetOdds(ctx context.Context, fixtureID int) ([]models.OddsResponse, error) {
	payload, err := c.cached(ctx, "odds", fixtureID, c.oddsTTL, func() (json.RawMessage, error) {
		return c.get(ctx, "odds", map[string]string{"fixture": strconv.Itoa(fixtureID)})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for fixture %d: %w", fixtureID, err)
	}

	var odds []models.OddsResponse
	if err := json.Unmarshal(payload, &odds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal odds for fixture %d: %w", fixtureID, err)
	}

	return odds, nil
}

// GetPredictions fetches the provider's own prediction statistics for a fixture
func (c *Client) GetPredictions(ctx context.Context, fixtureID int) ([]models.PredictionResponse, error) {
	payload, err := c.cached(ctx, "predictions", fixtureID, c.statsTTL, func() (json.RawMessage, error) {
		return c.get(ctx, "predictions", map[string]string{"fixture": strconv.Itoa(fixtureID)})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions for fixture %d: %w", fixtureID, err)
	}

	var stats []models.PredictionResponse
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal predictions for fixture %d: %w", fixtureID, err)
	}

	return stats, nil
}

// cached serves kind/fixtureID from the response cache, falling back to fetch.
// Cache faults are logged and never fail the call.
func (c *Client) cached(ctx context.Context, kind string, fixtureID int, ttl time.Duration, fetch func() (json.RawMessage, error)) (json.RawMessage, error) {
	if c.cache == nil || ttl <= 0 {
		return fetch()
	}

	key := fmt.Sprintf("apifootball:%s:%d", kind, fixtureID)
	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	} else if ok {
		metrics.RecordCacheHit(kind)
		return data, nil
	}
	metrics.RecordCacheMiss(kind)

	payload, err := fetch()
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, payload, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return payload, nil
}
