package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// Client is responsible for fetching position and summary data from the
// tracking provider
type Client struct {
	httpClient   *http.Client
	positionsURL string
	summaryURL   string
	apiKey       string
	logger       *logger.Logger
}

// NewClient creates a new tracking provider client
func NewClient(cfg config.ProviderConfig, loggerObj *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		positionsURL: cfg.PositionsURL,
		summaryURL:   cfg.SummaryURL,
		apiKey:       cfg.APIKey,
		logger:       loggerObj.Named("tracking-cli"),
	}
}

// Positions fetches a positional snapshot for the given geographic bounds at
// the given unix timestamp
func (c *Client) Positions(ctx context.Context, bounds string, ts int64) (*PositionsSnapshot, error) {
	params := url.Values{}
	params.Set("bounds", bounds)
	params.Set("timestamp", strconv.FormatInt(ts, 10))

	body, err := c.get(ctx, c.positionsURL, params)
	if err != nil {
		return nil, err
	}

	var envelope positionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse positions JSON: %w", err)
	}

	positions := envelope.Positions
	if positions == nil {
		positions = envelope.Data
	}

	c.logger.Debug("Fetched positions snapshot",
		logger.Int64("timestamp", ts),
		logger.Int("position_count", len(positions)),
	)

	return &PositionsSnapshot{Positions: positions, Raw: body}, nil
}

// Summaries fetches flight summaries for the given callsign/flight-number
// list within the given date-time window
func (c *Client) Summaries(ctx context.Context, flights []string, from, to time.Time) (*SummaryPage, error) {
	params := url.Values{}
	params.Set("flights", strings.Join(flights, ","))
	params.Set("flight_datetime_from", from.UTC().Format("2006-01-02T15:04:05"))
	params.Set("flight_datetime_to", to.UTC().Format("2006-01-02T15:04:05"))
	params.Set("limit", "100")

	body, err := c.get(ctx, c.summaryURL, params)
	if err != nil {
		return nil, err
	}

	// Try the {"data": [...]} envelope first, then a bare array
	var envelope summaryEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return &SummaryPage{Summaries: envelope.Data, Raw: body}, nil
	}

	var list []FlightSummary
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON: %w", err)
	}

	return &SummaryPage{Summaries: list, Raw: body}, nil
}

// get performs one authenticated GET against the provider and returns the
// response body, converting non-2xx statuses into *APIError
func (c *Client) get(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	urlStr := baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
