// Package assistant is the HTTP client for the external structured-reasoning
// backend. The backend parses free-text activity descriptions into canonical
// fields and can produce full calculations when the local matcher comes up
// empty. Every failure mode (timeout, transport error, bad status, bad JSON)
// collapses into ErrUnavailable: the orchestrator treats an unavailable
// assistant exactly like a rejection and falls through to the next backend.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/logging"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrUnavailable indicates the assistant backend could not produce a result.
var ErrUnavailable = constError("assistant backend unavailable")

const (
	// DefaultTimeout bounds each assistant call.
	DefaultTimeout = 30 * time.Second

	// maxAttempts is the total attempt budget per call: one try plus one
	// retry on transport errors and 5xx responses.
	maxAttempts = 2

	// retryBackoff is the pause before the single retry.
	retryBackoff = 500 * time.Millisecond
)

// Config holds client settings.
type Config struct {
	// BaseURL is the assistant service root, e.g. "https://assistant.internal".
	// An empty BaseURL disables the client.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each call; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client calls the assistant service. It implements activity.TextParser.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client from the given configuration.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether the client has a backend to talk to.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.cfg.BaseURL) != ""
}

// parseResponse is the wire shape of the parse endpoint.
type parseResponse struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	FuelType    string  `json:"fuel_type"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Parse sends free text to the assistant and returns the canonical activity
// fields. Validation of the result is the normalizer's job.
func (c *Client) Parse(ctx context.Context, raw string) (activity.ParsedActivity, error) {
	var resp parseResponse
	err := c.post(ctx, "/v1/parse", map[string]any{"input": raw}, &resp)
	if err != nil {
		return activity.ParsedActivity{}, err
	}
	return activity.ParsedActivity{
		Category:    resp.Category,
		Subcategory: resp.Subcategory,
		FuelType:    resp.FuelType,
		Quantity:    resp.Quantity,
		Unit:        resp.Unit,
		Description: resp.Description,
		Confidence:  resp.Confidence,
	}, nil
}

// CalculationPayload is the assistant's calculation answer.
type CalculationPayload struct {
	TotalEmissions float64               `json:"total_emissions"`
	EmissionsUnit  string                `json:"emissions_unit"`
	Scope          string                `json:"scope"`
	Confidence     float64               `json:"confidence"`
	Factor         *factors.Record       `json:"factor"`
	Breakdown      *factors.GasBreakdown `json:"breakdown"`
}

// StructuredCalculate asks the assistant to calculate emissions directly
// from a description plus hints about why local calculation was rejected.
func (c *Client) StructuredCalculate(
	ctx context.Context,
	description string,
	hints []string,
) (*CalculationPayload, error) {
	var resp CalculationPayload
	err := c.post(ctx, "/v1/calculate", map[string]any{
		"description": description,
		"hints":       hints,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.TotalEmissions < 0 {
		return nil, fmt.Errorf("%w: negative total emissions in response", ErrUnavailable)
	}
	return &resp, nil
}

// post sends a JSON request with the retry budget and decodes the response
// into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if !c.Enabled() {
		return fmt.Errorf("%w: no base URL configured", ErrUnavailable)
	}
	log := logging.FromContext(ctx)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			log.Debug().
				Str("component", "assistant").
				Str("path", path).
				Int("attempt", attempt).
				Msg("retrying assistant call")
		}

		lastErr = c.doOnce(ctx, url, payload, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) {
			break
		}
	}

	log.Warn().
		Str("component", "assistant").
		Str("path", path).
		Err(lastErr).
		Msg("assistant call failed")
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// statusError marks HTTP status failures so retryable can tell 5xx from 4xx.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether the failure is worth the single retry.
func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= http.StatusInternalServerError ||
			se.code == http.StatusTooManyRequests
	}
	// Transport-level failures are retryable.
	return true
}

// doOnce performs a single HTTP round trip.
func (c *Client) doOnce(ctx context.Context, url string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
