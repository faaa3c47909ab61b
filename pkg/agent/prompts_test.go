package agent

import (
	"os"
	"path/filepath"
	"testing"

	"vlm-search-agent/internal/constant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptSet(t *testing.T) {
	p := DefaultPromptSet()
	require.NoError(t, p.Validate())

	assert.Equal(t, constant.PromptToolUse, p.Get(PromptToolUse))
	assert.Contains(t, p.Format(PromptToolUse, "What is this?"), "[Question] What is this?")
	assert.Contains(t, p.Format(PromptSelfCheck, "ctx", "ans"), "[Context] ctx.\n[Response] ans.")

	vp := p.VerifierPrompts()
	assert.Equal(t, constant.PromptAnswerWithContext, vp.AnswerWithContext)
	assert.Equal(t, constant.PromptSelfCheck, vp.SelfCheck)
}

func TestParsePromptSet(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
		check   func(t *testing.T, p PromptSet)
	}{
		{
			name: "override one template",
			doc:  "tool_use: \"Answer or say [SEARCH]: %s\"\n",
			check: func(t *testing.T, p PromptSet) {
				assert.Equal(t, "Answer or say [SEARCH]: %s", p.Get(PromptToolUse))
				assert.Equal(t, constant.PromptSelfCheck, p.Get(PromptSelfCheck))
			},
		},
		{
			name:    "unknown name",
			doc:     "greeting: \"hi %s\"\n",
			wantErr: "unknown prompt",
		},
		{
			name:    "wrong slot count",
			doc:     "self_check: \"only %s\"\n",
			wantErr: "slots",
		},
		{
			name:    "empty template",
			doc:     "search_keywords: \"\"\n",
			wantErr: "missing",
		},
		{
			name:    "not a mapping",
			doc:     "- a\n- b\n",
			wantErr: "parse prompts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePromptSet([]byte(tt.doc))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestLoadPromptSet(t *testing.T) {
	p, err := LoadPromptSet("")
	require.NoError(t, err)
	assert.Equal(t, constant.PromptToolUse, p.Get(PromptToolUse))

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_keywords: |\n  Keywords for %s please\n"), 0o644))

	p, err = LoadPromptSet(path)
	require.NoError(t, err)
	assert.Equal(t, "Keywords for %s please\n", p.Get(PromptSearchKeywords))

	_, err = LoadPromptSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultPromptSetIsACopy(t *testing.T) {
	a := DefaultPromptSet()
	a.templates[PromptToolUse] = "changed %s"
	assert.Equal(t, constant.PromptToolUse, DefaultPromptSet().Get(PromptToolUse))
}
