// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/resilience"
)

// Guard bundles the protections every outbound call passes through: the
// provider's breaker, its pacer, and the shared quota counter.
type Guard struct {
	Breaker     *resilience.CircuitBreaker
	Pacer       *resilience.Pacer
	Limiter     *resilience.RateLimiter
	QuotaReqs   int
	QuotaWindow time.Duration
}

// NewGuard builds a guard for the named provider from its config.
func NewGuard(name string, cfg *config.ProviderConfig, breakers *resilience.BreakerRegistry, limiter *resilience.RateLimiter) Guard {
	return Guard{
		Breaker:     breakers.Get(name),
		Pacer:       resilience.NewPacer(cfg.RatePerSec, cfg.Burst),
		Limiter:     limiter,
		QuotaReqs:   cfg.QuotaReqs,
		QuotaWindow: cfg.QuotaWindow,
	}
}

// httpClient is the transport shared by the provider clients.
type httpClient struct {
	name           string
	baseURL        string
	client         *http.Client
	guard          Guard
	maxRetries     int           // Retries on HTTP 429
	retryBaseDelay time.Duration // Doubles per retry unless Retry-After is given
}

func newHTTPClient(name string, cfg *config.ProviderConfig, guard Guard) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		name:           name,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		client:         &http.Client{Timeout: timeout},
		guard:          guard,
		maxRetries:     3,
		retryBaseDelay: time.Second,
	}
}

// request describes one provider call.
type request struct {
	op      string // Operation label for metrics and errors
	method  string
	url     string // Absolute, or a path joined to baseURL
	query   url.Values
	headers http.Header
	body    func() io.Reader // Rebuilt per attempt
}

// do runs req through quota check, pacer and breaker, and decodes a 2xx JSON
// body into out. A spent quota returns ErrQuotaExhausted without any I/O.
func (c *httpClient) do(ctx context.Context, req request, out any) error {
	if err := c.checkQuota(ctx); err != nil {
		return err
	}
	if err := c.guard.Pacer.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := resilience.Do(ctx, c.guard.Breaker, func(ctx context.Context) error {
		return c.roundTrip(ctx, req, out)
	})
	metrics.RecordProviderRequest(c.name, req.op, time.Since(start), errorReason(err), err)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("provider", c.name).Str("operation", req.op).Msg("Provider request failed")
	}
	return err
}

func (c *httpClient) checkQuota(ctx context.Context) error {
	if c.guard.Limiter == nil || c.guard.QuotaReqs <= 0 || c.guard.QuotaWindow <= 0 {
		return nil
	}
	allowed, err := c.guard.Limiter.CheckLimit(ctx, "provider:"+c.name, c.guard.QuotaReqs, c.guard.QuotaWindow)
	if err != nil {
		return fmt.Errorf("check %s quota: %w", c.name, err)
	}
	if !allowed {
		return fmt.Errorf("%s: %w", c.name, ErrQuotaExhausted)
	}
	return nil
}

func (c *httpClient) roundTrip(ctx context.Context, req request, out any) error {
	resp, err := c.doRequestWithRateLimit(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Provider:   c.name,
			Operation:  req.op,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", c.name, req.op, err)
	}
	return nil
}

// doRequestWithRateLimit retries HTTP 429 with exponential backoff, honouring
// Retry-After when the provider sends it. Waits are cancellable.
func (c *httpClient) doRequestWithRateLimit(ctx context.Context, req request) (*http.Response, error) {
	target := req.url
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	method := req.method
	if method == "" {
		method = http.MethodGet
	}

	var resp *http.Response
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body := io.Reader(http.NoBody)
		if req.body != nil {
			body = req.body()
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")
		for k, vs := range req.headers {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		resp, err = c.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%s %s request failed: %w", c.name, req.op, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt == c.maxRetries {
			return resp, nil
		}
		_ = resp.Body.Close()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				delay = time.Duration(secs) * time.Second
			}
		}
		if err := resilience.Delay(ctx, delay); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
