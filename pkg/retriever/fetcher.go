package retriever

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"vlm-search-agent/pkg/imaging"

	"github.com/PuerkitoBio/goquery"
)

// PageFetcher downloads and parses one candidate page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

type HTTPPageFetcher struct {
	client  *http.Client
	timeout time.Duration
}

var _ PageFetcher = &HTTPPageFetcher{}

func NewHTTPPageFetcher(timeout time.Duration) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPPageFetcher{
		client:  &http.Client{},
		timeout: timeout,
	}
}

func (f *HTTPPageFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", imaging.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

var reSpaces = regexp.MustCompile(`\s+`)

// ExtractParagraphs returns the text of every <p>, whitespace-collapsed,
// skipping paragraphs shorter than minLen characters.
func ExtractParagraphs(doc *goquery.Document, minLen int) []string {
	var out []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(reSpaces.ReplaceAllString(sel.Text(), " "))
		if utf8.RuneCountInString(text) < minLen {
			return
		}
		out = append(out, text)
	})
	return out
}
