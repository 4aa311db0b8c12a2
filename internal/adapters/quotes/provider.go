// Package quotes adapts the external live-quote provider. The adapter
// normalizes bid/ask into a single reference price and never fabricates
// one; callers own the fallback policy for unavailable quotes.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"ledgerbot/internal/adapters/config"
	"ledgerbot/internal/domain/position"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Provider returns the reference price for a contract series
type Provider interface {
	// Quote returns the reference price per contract in dollars, or
	// errors.ErrQuoteUnavailable when no usable bid/ask exists
	Quote(ctx context.Context, key position.OptionKey) (decimal.Decimal, error)
}

// Compile-time check
var _ Provider = (*HTTPProvider)(nil)

// HTTPProvider fetches option quotes over HTTP with a bounded timeout and
// a client-side rate limit
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	log     *logger.Logger
}

// NewHTTPProvider creates a quote provider client
func NewHTTPProvider(cfg config.QuotesConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		timeout: cfg.Timeout,
		log:     logger.Get().With("component", "quote_provider"),
	}
}

type quoteResponse struct {
	Bid *decimal.Decimal `json:"bid"`
	Ask *decimal.Decimal `json:"ask"`
}

// Quote fetches the live bid/ask for key and returns the reference price:
// the midpoint when both sides are present and positive, otherwise
// whichever side is present
func (p *HTTPProvider) Quote(ctx context.Context, key position.OptionKey) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrQuoteUnavailable, "rate limit wait: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.quoteURL(key), nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrQuoteUnavailable, err.Error())
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrQuoteUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Wrapf(errors.ErrQuoteUnavailable, "provider returned %d for %s", resp.StatusCode, key)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrQuoteUnavailable, err.Error())
	}

	return referencePrice(body.Bid, body.Ask)
}

func (p *HTTPProvider) quoteURL(key position.OptionKey) string {
	q := url.Values{}
	q.Set("ticker", key.Ticker)
	q.Set("expiry", key.Expiry.Format("2006-01-02"))
	q.Set("strike", key.Strike.String())
	q.Set("right", key.Right.String())
	return fmt.Sprintf("%s/v1/options/quote?%s", p.baseURL, q.Encode())
}

// referencePrice normalizes bid/ask into one price
func referencePrice(bid, ask *decimal.Decimal) (decimal.Decimal, error) {
	bidOK := bid != nil && bid.IsPositive()
	askOK := ask != nil && ask.IsPositive()

	switch {
	case bidOK && askOK:
		return bid.Add(*ask).Div(decimal.NewFromInt(2)), nil
	case bidOK:
		return *bid, nil
	case askOK:
		return *ask, nil
	}
	return decimal.Zero, errors.Wrap(errors.ErrQuoteUnavailable, "no usable bid or ask")
}
