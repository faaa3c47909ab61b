package passage

import "context"

// Passage is one text block extracted from a trusted source page.
// JSON keys match the on-disk store format.
type Passage struct {
	Title   string `json:"Title"`
	URL     string `json:"URL"`
	Content string `json:"content"`
}

// Store holds the evidence for the currently active image.
// Replace discards whatever was stored before.
type Store interface {
	Replace(ctx context.Context, passages []Passage) error
	Load(ctx context.Context) ([]Passage, error)
}
