package passage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePassages() []Passage {
	return []Passage{
		{Title: "Eiffel Tower - Wikipedia", URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Content: "The Eiffel Tower is a wrought-iron lattice tower on the Champ de Mars in Paris, France."},
		{Title: "Eiffel Tower - Wikipedia", URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Content: "Locally nicknamed « La dame de fer », it was constructed from 1887 to 1889 <as the entrance>."},
		{Title: "Gustave Eiffel - Wikipedia", URL: "https://en.wikipedia.org/wiki/Gustave_Eiffel", Content: "Alexandre Gustave Eiffel was a French civil engineer."},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "parsed_search_results.json"))

	want := samplePassages()
	require.NoError(t, store.Replace(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStoreFormat(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, store.Replace(ctx, samplePassages()[1:2]))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	text := string(raw)
	assert.True(t, strings.HasPrefix(text, "[\n    {"), "expected an indented array, got %q", text)
	assert.Contains(t, text, `"Title":`)
	assert.Contains(t, text, `"URL":`)
	assert.Contains(t, text, `"content":`)
	assert.Contains(t, text, "« La dame de fer »")
	assert.Contains(t, text, "<as the entrance>")
}

func TestFileStoreReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "store.json"))

	require.NoError(t, store.Replace(ctx, samplePassages()))
	second := []Passage{{Title: "Louvre - Wikipedia", URL: "https://en.wikipedia.org/wiki/Louvre", Content: "The Louvre is a national art museum in Paris."}}
	require.NoError(t, store.Replace(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "store.json"))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFileStoreEmptyReplace(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "store.json"))

	require.NoError(t, store.Replace(ctx, samplePassages()))
	require.NoError(t, store.Replace(ctx, nil))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	a := NewFileStore(path)
	b := NewFileStore(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Replace(ctx, samplePassages()))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Replace(ctx, samplePassages()[:1]))
		}()
	}
	wg.Wait()

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 3}, len(got))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	store := NewRedisStore(client, "test-"+uuid.NewString(), 0)
	defer client.Del(ctx, store.Key())

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := samplePassages()
	require.NoError(t, store.Replace(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
