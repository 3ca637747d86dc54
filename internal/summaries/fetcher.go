// Package summaries resolves flight summary metadata for many flight
// identifiers through bounded, concurrently executed batch requests.
package summaries

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/retry"
	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// SummaryClient is the slice of the tracking client the fetcher needs
type SummaryClient interface {
	Summaries(ctx context.Context, flights []string, from, to time.Time) (*tracking.SummaryPage, error)
}

// Result is the outcome of a full fetch, including the identifiers that
// never resolved. Failure is data here, not an error: the caller decides
// what to do with the failed subset.
type Result struct {
	Summaries    []tracking.FlightSummary
	RawResponses []json.RawMessage // Verbatim provider payloads for audit
	FailedIDs    []string          // Flight ids that never resolved
}

// batchResult is the immutable outcome one worker returns for one batch
type batchResult struct {
	page      *tracking.SummaryPage
	failedIDs []string
}

// Fetcher retrieves flight summaries in batches with retry and cross-round
// re-batching of failed identifiers
type Fetcher struct {
	client SummaryClient
	cfg    config.SummariesConfig
	policy retry.Policy
	logger *logger.Logger
}

// New creates a new batch summary fetcher
func New(client SummaryClient, cfg config.SummariesConfig, loggerObj *logger.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			// A 4xx other than 429 means the request itself is malformed;
			// retrying cannot help, so the batch is abandoned immediately.
			Retryable: func(err error) bool { return !tracking.IsClientError(err) },
			Backoff:   retry.Exponential(time.Duration(cfg.BaseBackoffSeconds) * time.Second),
		},
		logger: loggerObj.Named("summaries"),
	}
}

// Fetch resolves summaries for the given flight-id → designator map within
// the collection window, padded on both sides to tolerate clock and timezone
// skew in how the provider dates flights. Identifiers whose batches fail are
// regrouped and retried in later rounds; whatever still fails after the last
// round is reported in the result.
func (f *Fetcher) Fetch(ctx context.Context, designators map[string]string, windowStart, windowEnd time.Time) *Result {
	padding := time.Duration(f.cfg.WindowPaddingHours) * time.Hour
	from := windowStart.Add(-padding)
	to := windowEnd.Add(padding)

	result := &Result{}

	remaining := make([]string, 0, len(designators))
	for id := range designators {
		remaining = append(remaining, id)
	}
	sort.Strings(remaining)

	for round := 1; round <= f.cfg.Rounds && len(remaining) > 0; round++ {
		f.logger.Info("Starting summary fetch round",
			logger.Int("round", round),
			logger.Int("rounds", f.cfg.Rounds),
			logger.Int("ids", len(remaining)),
		)

		remaining = f.runRound(ctx, remaining, designators, from, to, result)

		if len(remaining) > 0 {
			f.logger.Warn("Round finished with unresolved ids",
				logger.Int("round", round),
				logger.Int("failed_ids", len(remaining)),
			)
		}
	}

	result.FailedIDs = remaining

	f.logger.Info("Summary fetching finished",
		logger.Int("summaries", len(result.Summaries)),
		logger.Int("failed_ids", len(result.FailedIDs)),
	)

	return result
}

// runRound executes one full pass over the given ids and returns those that
// failed. Workers only send immutable batch results over the channel; all
// appends to the shared result happen here in the coordinating goroutine.
func (f *Fetcher) runRound(ctx context.Context, ids []string, designators map[string]string, from, to time.Time, result *Result) []string {
	batches := partition(ids, f.cfg.BatchSize)

	jobs := make(chan []string, len(batches))
	results := make(chan batchResult, len(batches))

	workers := f.cfg.Workers
	if workers > len(batches) {
		workers = len(batches)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				results <- f.fetchBatch(ctx, batch, designators, from, to)
			}
		}()
	}

	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []string
	for res := range results {
		if res.page != nil {
			result.RawResponses = append(result.RawResponses, res.page.Raw)
			result.Summaries = append(result.Summaries, res.page.Summaries...)
		}
		failed = append(failed, res.failedIDs...)
	}
	sort.Strings(failed)

	return failed
}

// fetchBatch performs one batched summary request with retries. On
// exhaustion or a client error the whole batch's ids are reported failed.
func (f *Fetcher) fetchBatch(ctx context.Context, batch []string, designators map[string]string, from, to time.Time) batchResult {
	callsigns := make([]string, 0, len(batch))
	for _, id := range batch {
		callsigns = append(callsigns, designators[id])
	}

	var page *tracking.SummaryPage
	err := f.policy.Do(ctx, func() error {
		var fetchErr error
		page, fetchErr = f.client.Summaries(ctx, callsigns, from, to)
		if fetchErr != nil && tracking.IsRateLimited(fetchErr) {
			f.logger.Warn("Summary batch rate limited, backing off",
				logger.String("first_callsign", callsigns[0]),
			)
		}
		return fetchErr
	})
	if err != nil {
		f.logger.Error("Summary batch failed",
			logger.String("first_callsign", callsigns[0]),
			logger.Int("batch_size", len(batch)),
			logger.Error(err),
		)
		return batchResult{failedIDs: batch}
	}

	return batchResult{page: page}
}

// partition splits ids into batches of at most size elements
func partition(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
