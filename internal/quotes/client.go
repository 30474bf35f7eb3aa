// Package quotes fetches BRL exchange rates for USD and EUR.
//
// The primary source is the Banco Central do Brasil SGS API; the secondary
// source is ExchangeRate-API. When both fail a fixed fallback is served.
// Callers never see an error.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"financas/internal/cache"
	"financas/internal/core"
)

const (
	DefaultTTL = 5 * time.Minute

	DefaultBCBBaseURL      = "https://api.bcb.gov.br"
	DefaultFallbackBaseURL = "https://api.exchangerate-api.com"

	bcbSeriesUSD = 1
	bcbSeriesEUR = 21619

	SourceBCB          = "bcb"
	SourceExchangeRate = "exchangerate-api"
	SourceFixed        = "fixed"
)

var (
	fixedUSD = decimal.RequireFromString("4.95")
	fixedEUR = decimal.RequireFromString("5.35")
)

// Rates is how many BRL one unit of each currency buys.
type Rates struct {
	USD       decimal.Decimal `json:"USD"`
	EUR       decimal.Decimal `json:"EUR"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Source    string          `json:"source"`
}

// FallbackRates is served when no source answers.
func FallbackRates(now time.Time) Rates {
	return Rates{USD: fixedUSD, EUR: fixedEUR, FetchedAt: now, Source: SourceFixed}
}

// ToLocal converts amount in currency to BRL. Unknown currencies and BRL are
// returned unchanged.
func (r Rates) ToLocal(amount decimal.Decimal, currency core.Currency) decimal.Decimal {
	switch currency {
	case core.USD:
		return amount.Mul(r.USD).Round(2)
	case core.EUR:
		return amount.Mul(r.EUR).Round(2)
	}
	return amount
}

type Options struct {
	BCBBaseURL      string
	FallbackBaseURL string
	TTL             time.Duration
	HTTPClient      *http.Client
	Clock           cache.Clock
	Logger          *slog.Logger
}

type Client struct {
	bcbURL      string
	fallbackURL string
	http        *http.Client
	now         cache.Clock
	cached      *cache.Value[Rates]
	logger      *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.BCBBaseURL == "" {
		opts.BCBBaseURL = DefaultBCBBaseURL
	}
	if opts.FallbackBaseURL == "" {
		opts.FallbackBaseURL = DefaultFallbackBaseURL
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		bcbURL:      strings.TrimRight(opts.BCBBaseURL, "/"),
		fallbackURL: strings.TrimRight(opts.FallbackBaseURL, "/"),
		http:        opts.HTTPClient,
		now:         opts.Clock,
		cached:      cache.NewValue[Rates](opts.TTL, opts.Clock),
		logger:      opts.Logger,
	}
}

// Cache exposes the underlying cell so it can be registered with a
// cache.Manager.
func (c *Client) Cache() *cache.Value[Rates] {
	return c.cached
}

// Rates returns the cached rates while they are fresh, otherwise fetches new
// ones. Rates from either remote source are cached; the fixed fallback is
// not, so the next call retries the remotes.
func (c *Client) Rates(ctx context.Context) Rates {
	if r, at, ok := c.cached.Get(); ok {
		r.FetchedAt = at
		return r
	}

	r, err := c.fetchBCB(ctx)
	if err == nil {
		r.FetchedAt = c.cached.Set(r)
		return r
	}
	c.logger.WarnContext(ctx, "BCB quotes unavailable, trying fallback", "error", err)

	r, err = c.fetchExchangeRate(ctx)
	if err == nil {
		r.FetchedAt = c.cached.Set(r)
		return r
	}
	c.logger.ErrorContext(ctx, "All quote sources failed, serving fixed rates", "error", err)

	return FallbackRates(c.now())
}

type bcbPoint struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

func (c *Client) fetchBCB(ctx context.Context) (Rates, error) {
	var usd, eur decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.bcbSeries(gctx, bcbSeriesUSD)
		usd = v
		return err
	})
	g.Go(func() error {
		v, err := c.bcbSeries(gctx, bcbSeriesEUR)
		eur = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Rates{}, err
	}
	return Rates{USD: usd, EUR: eur, Source: SourceBCB}, nil
}

func (c *Client) bcbSeries(ctx context.Context, series int) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados/ultimos/1?formato=json", c.bcbURL, series)

	var points []bcbPoint
	if err := c.getJSON(ctx, url, &points); err != nil {
		return decimal.Zero, fmt.Errorf("bcb series %d: %w", series, err)
	}
	if len(points) == 0 {
		return decimal.Zero, fmt.Errorf("bcb series %d: empty response", series)
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(points[0].Value), ",", "."))
	if err != nil || !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("bcb series %d: bad value %q", series, points[0].Value)
	}
	return v, nil
}

type exchangeRateResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// fetchExchangeRate reads BRL-based rates and inverts them.
func (c *Client) fetchExchangeRate(ctx context.Context) (Rates, error) {
	var resp exchangeRateResponse
	if err := c.getJSON(ctx, c.fallbackURL+"/v4/latest/BRL", &resp); err != nil {
		return Rates{}, fmt.Errorf("exchangerate-api: %w", err)
	}

	invert := func(code string) (decimal.Decimal, error) {
		rate := core.CoerceFloat(resp.Rates[code])
		if !rate.IsPositive() {
			return decimal.Zero, fmt.Errorf("exchangerate-api: missing %s rate", code)
		}
		return decimal.NewFromInt(1).DivRound(rate, 4), nil
	}

	usd, err := invert("USD")
	if err != nil {
		return Rates{}, err
	}
	eur, err := invert("EUR")
	if err != nil {
		return Rates{}, err
	}
	return Rates{USD: usd, EUR: eur, Source: SourceExchangeRate}, nil
}

var errStatus = errors.New("unexpected status")

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w %d", errStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
