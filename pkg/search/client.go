package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// ErrNotHTML stops pagination: the search page answered with something else
// (usually a captcha image or a JSON error).
var ErrNotHTML = errors.New("non-HTML content received")

type ClientOptions struct {
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestsPerSec float64
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     2 * time.Second,
		RequestsPerSec: 1,
	}
}

// pageClient fetches and parses search result pages with a rate limit and a
// fixed-delay retry on HTTP failures.
type pageClient struct {
	http    *http.Client
	limiter *rate.Limiter
	opts    ClientOptions
	logger  logger.ILogger
}

func newPageClient(opts ClientOptions, log logger.ILogger) *pageClient {
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	return &pageClient{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  log,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.code)
}

func (c *pageClient) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			d, err := c.fetch(ctx, pageURL)
			if err != nil {
				return err
			}
			doc = d
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.RetryAttempts)),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNotHTML) && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("search", "search page request failed, retrying", map[string]interface{}{
				"attempt": n + 1,
				"url":     pageURL,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *pageClient) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", imaging.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return nil, retry.Unrecoverable(ErrNotHTML)
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
