package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/passage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.VLM.Provider = "fastapi"
	cfg.VLM.Model = "phi3_vision"
	cfg.Embedding.Provider = "ollama"
	cfg.Agent.StoreKind = "file"
	cfg.Agent.StoreDir = filepath.Join(t.TempDir(), "passages")
	cfg.Agent.StorePath = filepath.Join(t.TempDir(), "parsed_search_results.json")
	cfg.Agent.PromptFile = ""
	return cfg
}

func TestSessionStoreLifecycle(t *testing.T) {
	cfg := testConfig(t)
	f, err := NewAgentFactory(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	store, err := f.SessionStore("3f0c-session_1")
	require.NoError(t, err)
	fs, ok := store.(*passage.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cfg.Agent.StoreDir, "3f0c-session_1.json"), fs.Path())

	require.NoError(t, fs.Replace(context.Background(), []passage.Passage{{Title: "t", URL: "u", Content: "c"}}))
	_, err = os.Stat(fs.Path())
	require.NoError(t, err)

	f.Release("3f0c-session_1")
	_, err = os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSessionStoreRejectsPathTricks(t *testing.T) {
	f, err := NewAgentFactory(testConfig(t), logger.NewNopLogger())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b", "a.json"} {
		_, err := f.SessionStore(id)
		assert.Error(t, err, id)
	}
}

func TestBuildAndTerminalStore(t *testing.T) {
	cfg := testConfig(t)
	f, err := NewAgentFactory(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	a, err := f.Build("abc")
	require.NoError(t, err)
	assert.Empty(t, a.Session().ActiveImageIdentity)

	fs, ok := f.TerminalStore().(*passage.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.Agent.StorePath, fs.Path())
}

func TestNewAgentFactoryErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"unknown vlm", func(cfg *config.Config) { cfg.VLM.Provider = "nope" }},
		{"unknown embedder", func(cfg *config.Config) { cfg.Embedding.Provider = "nope" }},
		{"redis without client", func(cfg *config.Config) { cfg.Agent.StoreKind = "redis" }},
		{"missing prompt file", func(cfg *config.Config) { cfg.Agent.PromptFile = "/does/not/exist.yaml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := NewAgentFactory(cfg, logger.NewNopLogger())
			assert.Error(t, err)
		})
	}
}
