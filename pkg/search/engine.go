package search

import (
	"context"
	"net/url"
	"strings"
)

// Candidate is one web page a search engine associated with the image.
type Candidate struct {
	Title string
	URL   string
}

// Engine maps an image URL to candidate pages.
type Engine interface {
	Name() string
	Search(ctx context.Context, imageURL string) ([]Candidate, error)
}

// TrustedSource keeps only pages whose title and URL both carry a marker,
// e.g. "Wikipedia" and "en.wikipedia.org".
type TrustedSource struct {
	TitleMarker string
	HostMarker  string
}

var EnglishWikipedia = TrustedSource{TitleMarker: "Wikipedia", HostMarker: "en.wikipedia.org"}

func (t TrustedSource) Allows(c Candidate) bool {
	return strings.Contains(c.Title, t.TitleMarker) && strings.Contains(c.URL, t.HostMarker)
}

func (t TrustedSource) Filter(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if t.Allows(c) {
			out = append(out, c)
		}
	}
	return out
}

// Merge concatenates candidate lists in order and drops every candidate whose
// normalized URL was already seen. The first occurrence wins.
func Merge(lists ...[]Candidate) []Candidate {
	seen := make(map[string]struct{})
	out := []Candidate{}
	for _, list := range lists {
		for _, c := range list {
			key := NormalizeURL(c.URL)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// NormalizeURL lower-cases scheme and host, drops the fragment and any
// trailing slash. Query strings are kept. Unparseable input is only trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
