package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
)

type ExactMatchOptions struct {
	BaseURL    string
	MaxResults int
	Client     ClientOptions
}

func DefaultExactMatchOptions() ExactMatchOptions {
	return ExactMatchOptions{
		BaseURL:    "https://www.google.com",
		MaxResults: 50,
		Client:     DefaultClientOptions(),
	}
}

// ExactMatchSearch lists pages that embed the very same image.
type ExactMatchSearch struct {
	opts   ExactMatchOptions
	client *pageClient
	logger logger.ILogger
}

var _ Engine = &ExactMatchSearch{}

func NewExactMatchSearch(opts ExactMatchOptions, log logger.ILogger) *ExactMatchSearch {
	return &ExactMatchSearch{
		opts:   opts,
		client: newPageClient(opts.Client, log),
		logger: log,
	}
}

func (s *ExactMatchSearch) Name() string {
	return "exact"
}

func (s *ExactMatchSearch) Search(ctx context.Context, imageURL string) ([]Candidate, error) {
	if err := imaging.ValidateURL(imageURL); err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("%s/searchbyimage?image_url=%s&client=app",
		strings.TrimRight(s.opts.BaseURL, "/"), url.QueryEscape(imageURL))

	doc, err := s.client.get(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNotHTML) {
			s.logger.Warn("search", "non-HTML search page", map[string]interface{}{"engine": s.Name()})
			metrics.ObserveEngine(s.Name(), 0)
			return []Candidate{}, nil
		}
		return nil, fmt.Errorf("exact match search: %w", err)
	}

	results := []Candidate{}
	seen := make(map[string]struct{})
	doc.Find("a[href]:has(h3)").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if s.opts.MaxResults > 0 && len(results) >= s.opts.MaxResults {
			return false
		}
		href, _ := sel.Attr("href")
		link := unwrapRedirect(href)
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		if link == "" || title == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}
		results = append(results, Candidate{Title: title, URL: link})
		return true
	})

	metrics.ObserveEngine(s.Name(), len(results))
	return results, nil
}
