package embedding

import (
	"context"
	"fmt"
)

// EmbeddingProvider turns texts into fixed-dimension vectors.
// The result has one vector per input, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CheckCount guards against backends that silently drop inputs.
func CheckCount(provider string, want, got int) error {
	if want != got {
		return fmt.Errorf("%s returned %d embeddings for %d inputs", provider, got, want)
	}
	return nil
}
