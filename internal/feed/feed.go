// Package feed talks to the alpha123.uk upstream: the airdrop event list and
// the spot price endpoint. The upstream is best-effort quality; everything it
// returns is treated as untrusted input.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEventsURL = "https://alpha123.uk/api/data?fresh=1"
	defaultPricesURL = "https://alpha123.uk/api/price/?batch=today"

	// The upstream rejects bare clients, so requests carry browser-like headers.
	refererHeader = "https://alpha123.uk/index.html"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// ErrBadPayload means the upstream answered 200 but the body was not the
// expected JSON shape.
var ErrBadPayload = errors.New("feed: malformed payload")

// StatusError is returned when the events endpoint answers with a non-200 code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: unexpected status %d", e.Code)
}

// RawEvent is one record from the upstream event list, verbatim.
// No field is guaranteed to be present or well-formed.
type RawEvent struct {
	Token  string `json:"token"`
	Name   string `json:"name"`
	Date   string `json:"date"`   // calendar date, "2006-01-02" expected
	Time   string `json:"time"`   // free text, e.g. "13:00", "13:00 Delay", "Tomorrow"
	Phase  int    `json:"phase"`  // 0 when omitted; treated as phase 1
	Points string `json:"points"` // optional
	Amount string `json:"amount"` // optional, numeric-as-string
}

// EffectivePhase maps the upstream's "omitted means 1" convention.
func (e RawEvent) EffectivePhase() int {
	if e.Phase <= 0 {
		return 1
	}
	return e.Phase
}

// Quote is the price info for a single token.
type Quote struct {
	Price    float64 `json:"price"`
	DexPrice float64 `json:"dex_price"`
}

// Best prefers the DEX price and falls back to the aggregate price.
// Returns 0 when neither is usable.
func (q Quote) Best() float64 {
	if q.DexPrice > 0 {
		return q.DexPrice
	}
	if q.Price > 0 {
		return q.Price
	}
	return 0
}

// PriceMap maps token symbol to its quote. A nil map is a valid
// "no prices available" value.
type PriceMap map[string]Quote

type eventsEnvelope struct {
	Airdrops []RawEvent `json:"airdrops"`
}

type pricesEnvelope struct {
	Success bool     `json:"success"`
	Prices  PriceMap `json:"prices"`
}

type Config struct {
	EventsURL     string
	PricesURL     string
	EventsTimeout time.Duration
	PricesTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.EventsURL) == "" {
		c.EventsURL = defaultEventsURL
	}
	if strings.TrimSpace(c.PricesURL) == "" {
		c.PricesURL = defaultPricesURL
	}
	if c.EventsTimeout <= 0 {
		c.EventsTimeout = 20 * time.Second
	}
	if c.PricesTimeout <= 0 {
		c.PricesTimeout = 10 * time.Second
	}
	return c
}

// Client fetches events and prices. Every call re-fetches; freshness is worth
// more than efficiency at the call rates a cron-style trigger produces.
type Client struct {
	cfg          Config
	eventsClient *http.Client
	pricesClient *http.Client
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:          cfg,
		eventsClient: &http.Client{Timeout: cfg.EventsTimeout},
		pricesClient: &http.Client{Timeout: cfg.PricesTimeout},
	}
}

// Events fetches the raw event list.
//
// Error taxonomy:
//   - transport failure: wrapped error
//   - non-200: *StatusError
//   - unparsable body: ErrBadPayload
//
// An empty list is a valid result, not an error.
func (c *Client) Events(ctx context.Context) ([]RawEvent, error) {
	body, err := c.get(ctx, c.eventsClient, c.cfg.EventsURL)
	if err != nil {
		return nil, err
	}

	var env eventsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return env.Airdrops, nil
}

// Prices fetches the price snapshot for today's tokens. Prices are an
// enrichment, not a correctness dependency: every failure path returns an
// empty map and a nil error.
func (c *Client) Prices(ctx context.Context) PriceMap {
	body, err := c.get(ctx, c.pricesClient, c.cfg.PricesURL)
	if err != nil {
		return PriceMap{}
	}

	var env pricesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PriceMap{}
	}
	if !env.Success || env.Prices == nil {
		return PriceMap{}
	}
	return env.Prices
}

func (c *Client) get(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Referer", refererHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
