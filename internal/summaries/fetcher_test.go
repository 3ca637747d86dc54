package summaries

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

type fakeSummaryClient struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(call int, flights []string) (*tracking.SummaryPage, error)
}

func (c *fakeSummaryClient) Summaries(_ context.Context, flights []string, _, _ time.Time) (*tracking.SummaryPage, error) {
	c.mu.Lock()
	call := len(c.calls)
	c.calls = append(c.calls, flights)
	c.mu.Unlock()
	return c.fn(call, flights)
}

func (c *fakeSummaryClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func testFetcherConfig() config.SummariesConfig {
	return config.SummariesConfig{
		BatchSize:          2,
		Workers:            2,
		MaxAttempts:        3,
		BaseBackoffSeconds: 0,
		Rounds:             2,
		WindowPaddingHours: 12,
	}
}

func pageFor(flights []string) *tracking.SummaryPage {
	summaries := make([]tracking.FlightSummary, 0, len(flights))
	for _, f := range flights {
		summaries = append(summaries, tracking.FlightSummary{Callsign: f})
	}
	return &tracking.SummaryPage{Summaries: summaries, Raw: json.RawMessage(`{}`)}
}

func TestFetchResolvesAllBatches(t *testing.T) {
	client := &fakeSummaryClient{
		fn: func(_ int, flights []string) (*tracking.SummaryPage, error) {
			return pageFor(flights), nil
		},
	}
	f := New(client, testFetcherConfig(), logger.NewNop())

	designators := map[string]string{
		"id1": "AAL100",
		"id2": "UAL200",
		"id3": "DAL300",
	}
	result := f.Fetch(context.Background(), designators, time.Now(), time.Now().Add(24*time.Hour))

	assert.Empty(t, result.FailedIDs)
	assert.Len(t, result.Summaries, 3)
	assert.Len(t, result.RawResponses, 2) // batch size 2 over 3 ids

	var seen []string
	for _, s := range result.Summaries {
		seen = append(seen, s.Callsign)
	}
	sort.Strings(seen)
	assert.Equal(t, []string{"AAL100", "DAL300", "UAL200"}, seen)
}

func TestFetchPadsWindow(t *testing.T) {
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	var gotFrom, gotTo time.Time
	f := New(summaryClientFunc(func(ctx context.Context, flights []string, from, to time.Time) (*tracking.SummaryPage, error) {
		gotFrom, gotTo = from, to
		return pageFor(flights), nil
	}), testFetcherConfig(), logger.NewNop())

	f.Fetch(context.Background(), map[string]string{"id1": "AAL100"}, windowStart, windowEnd)

	assert.Equal(t, windowStart.Add(-12*time.Hour), gotFrom)
	assert.Equal(t, windowEnd.Add(12*time.Hour), gotTo)
}

type summaryClientFunc func(ctx context.Context, flights []string, from, to time.Time) (*tracking.SummaryPage, error)

func (f summaryClientFunc) Summaries(ctx context.Context, flights []string, from, to time.Time) (*tracking.SummaryPage, error) {
	return f(ctx, flights, from, to)
}

func TestFetchAbandonsBatchOnClientError(t *testing.T) {
	client := &fakeSummaryClient{
		fn: func(_ int, _ []string) (*tracking.SummaryPage, error) {
			return nil, &tracking.APIError{StatusCode: http.StatusBadRequest, Body: "validation error"}
		},
	}
	f := New(client, testFetcherConfig(), logger.NewNop())

	designators := map[string]string{"id1": "AAL100", "id2": "UAL200", "id3": "DAL300"}
	result := f.Fetch(context.Background(), designators, time.Now(), time.Now())

	assert.Equal(t, []string{"id1", "id2", "id3"}, result.FailedIDs)
	assert.Empty(t, result.Summaries)
	// A 400 is not retried within a round: 2 batches over 2 rounds is 4 calls
	assert.Equal(t, 4, client.callCount())
}

func TestFetchRetriesRateLimitWithinRound(t *testing.T) {
	var mu sync.Mutex
	attempts := make(map[string]int)

	client := &fakeSummaryClient{
		fn: func(_ int, flights []string) (*tracking.SummaryPage, error) {
			mu.Lock()
			attempts[flights[0]]++
			n := attempts[flights[0]]
			mu.Unlock()
			if n == 1 {
				return nil, &tracking.APIError{StatusCode: http.StatusTooManyRequests}
			}
			return pageFor(flights), nil
		},
	}
	f := New(client, testFetcherConfig(), logger.NewNop())

	result := f.Fetch(context.Background(),
		map[string]string{"id1": "AAL100"}, time.Now(), time.Now())

	assert.Empty(t, result.FailedIDs)
	assert.Len(t, result.Summaries, 1)
	assert.Equal(t, 2, client.callCount())
}

func TestFetchRebatchesAcrossRounds(t *testing.T) {
	// Every batch fails all attempts in round one, then succeeds in round two
	client := &fakeSummaryClient{}
	cfg := testFetcherConfig()
	firstRoundCalls := cfg.MaxAttempts * 2 // 2 batches
	client.fn = func(call int, flights []string) (*tracking.SummaryPage, error) {
		if call < firstRoundCalls {
			return nil, &tracking.APIError{StatusCode: http.StatusInternalServerError}
		}
		return pageFor(flights), nil
	}
	f := New(client, cfg, logger.NewNop())

	designators := map[string]string{"id1": "AAL100", "id2": "UAL200", "id3": "DAL300"}
	result := f.Fetch(context.Background(), designators, time.Now(), time.Now())

	assert.Empty(t, result.FailedIDs)
	assert.Len(t, result.Summaries, 3)
}

func TestFetchReportsIDsAfterFinalRound(t *testing.T) {
	client := &fakeSummaryClient{
		fn: func(_ int, _ []string) (*tracking.SummaryPage, error) {
			return nil, &tracking.APIError{StatusCode: http.StatusInternalServerError}
		},
	}
	cfg := testFetcherConfig()
	f := New(client, cfg, logger.NewNop())

	designators := map[string]string{"id2": "UAL200", "id1": "AAL100"}
	result := f.Fetch(context.Background(), designators, time.Now(), time.Now())

	assert.Equal(t, []string{"id1", "id2"}, result.FailedIDs)
	// 1 batch, MaxAttempts per round, Rounds rounds
	assert.Equal(t, cfg.MaxAttempts*cfg.Rounds, client.callCount())
}

func TestFetchSendsDesignatorsNotIDs(t *testing.T) {
	client := &fakeSummaryClient{
		fn: func(_ int, flights []string) (*tracking.SummaryPage, error) {
			return pageFor(flights), nil
		},
	}
	f := New(client, testFetcherConfig(), logger.NewNop())

	f.Fetch(context.Background(), map[string]string{"39e2c1d0": "AAL100"}, time.Now(), time.Now())

	require.Equal(t, 1, client.callCount())
	assert.Equal(t, []string{"AAL100"}, client.calls[0])
}

func TestFetchNoDesignators(t *testing.T) {
	client := &fakeSummaryClient{
		fn: func(_ int, flights []string) (*tracking.SummaryPage, error) {
			return pageFor(flights), nil
		},
	}
	f := New(client, testFetcherConfig(), logger.NewNop())

	result := f.Fetch(context.Background(), map[string]string{}, time.Now(), time.Now())

	assert.Empty(t, result.Summaries)
	assert.Empty(t, result.FailedIDs)
	assert.Equal(t, 0, client.callCount())
}

func TestPartition(t *testing.T) {
	assert.Nil(t, partition(nil, 3))
	assert.Equal(t, [][]string{{"a"}}, partition([]string{"a"}, 3))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, partition([]string{"a", "b", "c"}, 3))
	assert.Equal(t,
		[][]string{{"a", "b", "c"}, {"d", "e"}},
		partition([]string{"a", "b", "c", "d", "e"}, 3))
}
