package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
)

type VisualOptions struct {
	BaseURL     string
	MaxResults  int
	MaxAttempts int           // result pages to try before giving up on MaxResults
	PageDelay   time.Duration // pause between result pages
	Client      ClientOptions
}

func DefaultVisualOptions() VisualOptions {
	return VisualOptions{
		BaseURL:     "https://www.google.com",
		MaxResults:  10,
		MaxAttempts: 3,
		PageDelay:   2 * time.Second,
		Client:      DefaultClientOptions(),
	}
}

// VisualSearch finds pages about the entity shown in the image
// (image -> recognized entity -> ordinary web results for it).
type VisualSearch struct {
	opts   VisualOptions
	client *pageClient
	logger logger.ILogger
}

var _ Engine = &VisualSearch{}

func NewVisualSearch(opts VisualOptions, log logger.ILogger) *VisualSearch {
	return &VisualSearch{
		opts:   opts,
		client: newPageClient(opts.Client, log),
		logger: log,
	}
}

func (s *VisualSearch) Name() string {
	return "visual"
}

func (s *VisualSearch) Search(ctx context.Context, imageURL string) ([]Candidate, error) {
	if err := imaging.ValidateURL(imageURL); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s/searchbyimage?q=&image_url=%s&sbisrc=cr_1_5_2",
		strings.TrimRight(s.opts.BaseURL, "/"), url.QueryEscape(imageURL))

	results := []Candidate{}
	seen := make(map[Candidate]struct{})
	start := 0

	for attempt := 0; len(results) < s.opts.MaxResults && attempt < s.opts.MaxAttempts; attempt++ {
		if start != 0 {
			if err := sleep(ctx, s.opts.PageDelay); err != nil {
				return results, err
			}
		}

		doc, err := s.client.get(ctx, fmt.Sprintf("%s&start=%d", base, start))
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			if errors.Is(err, ErrNotHTML) {
				s.logger.Warn("search", "non-HTML search page, stopping", map[string]interface{}{"engine": s.Name()})
			} else {
				s.logger.Error("search", "search page failed", map[string]interface{}{"engine": s.Name(), "error": err.Error()})
			}
			break
		}

		doc.Find("div.g").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if len(results) >= s.opts.MaxResults {
				return false
			}
			c, ok := extractResult(sel)
			if !ok {
				return true
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				results = append(results, c)
			}
			return true
		})

		start = len(results)
	}

	if len(results) == 0 {
		s.logger.Warn("search", "no results for image", map[string]interface{}{"engine": s.Name(), "image_url": imageURL})
	}
	metrics.ObserveEngine(s.Name(), len(results))
	return results, nil
}

// extractResult pulls the first link and the h3 title out of a result block.
func extractResult(sel *goquery.Selection) (Candidate, bool) {
	href, ok := sel.Find("a[href]").First().Attr("href")
	if !ok {
		return Candidate{}, false
	}
	title := strings.TrimSpace(sel.Find("h3").First().Text())
	link := unwrapRedirect(href)
	if link == "" || title == "" {
		return Candidate{}, false
	}
	return Candidate{Title: title, URL: link}, true
}

// unwrapRedirect turns "/url?q=<target>&sa=..." into the target.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	if q := u.Query().Get("url"); q != "" {
		return q
	}
	return href
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
