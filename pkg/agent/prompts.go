package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"vlm-search-agent/internal/constant"
	"vlm-search-agent/pkg/verifier"

	"gopkg.in/yaml.v3"
)

const (
	PromptToolUse           = "tool_use"
	PromptSearchKeywords    = "search_keywords"
	PromptAnswerWithContext = "answer_with_context"
	PromptSelfCheck         = "self_check"
	PromptConsistencyCheck  = "consistency_check"
)

// slot counts per template, in fill order
var promptSlots = map[string]int{
	PromptToolUse:           1,
	PromptSearchKeywords:    1,
	PromptAnswerWithContext: 2,
	PromptSelfCheck:         2,
	PromptConsistencyCheck:  2,
}

// PromptSet maps template name to a format string with positional %s slots.
// It is built once and never mutated afterwards.
type PromptSet struct {
	templates map[string]string
}

// DefaultPromptSet returns the built-in templates.
func DefaultPromptSet() PromptSet {
	return PromptSet{templates: map[string]string{
		PromptToolUse:           constant.PromptToolUse,
		PromptSearchKeywords:    constant.PromptSearchKeywords,
		PromptAnswerWithContext: constant.PromptAnswerWithContext,
		PromptSelfCheck:         constant.PromptSelfCheck,
		PromptConsistencyCheck:  constant.PromptConsistencyCheck,
	}}
}

// ParsePromptSet reads a YAML mapping of template names. Names absent from
// the document keep their built-in template; unknown names are rejected.
func ParsePromptSet(data []byte) (PromptSet, error) {
	var doc map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return PromptSet{}, fmt.Errorf("parse prompts: %w", err)
	}

	set := DefaultPromptSet()
	for name, tmpl := range doc {
		if _, ok := promptSlots[name]; !ok {
			return PromptSet{}, fmt.Errorf("unknown prompt %q (known: %s)", name, strings.Join(PromptNames(), ", "))
		}
		set.templates[name] = tmpl
	}
	if err := set.Validate(); err != nil {
		return PromptSet{}, err
	}
	return set, nil
}

// LoadPromptSet returns the built-in set when path is empty, otherwise the
// file at path layered over it.
func LoadPromptSet(path string) (PromptSet, error) {
	if path == "" {
		return DefaultPromptSet(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("read prompts file: %w", err)
	}
	return ParsePromptSet(data)
}

// Validate checks that every template is present with the right slot count.
func (p PromptSet) Validate() error {
	for _, name := range PromptNames() {
		tmpl, ok := p.templates[name]
		if !ok || strings.TrimSpace(tmpl) == "" {
			return fmt.Errorf("prompt %q is missing", name)
		}
		if got, want := strings.Count(tmpl, "%s"), promptSlots[name]; got != want {
			return fmt.Errorf("prompt %q has %d %%s slots, want %d", name, got, want)
		}
	}
	return nil
}

func (p PromptSet) Get(name string) string {
	return p.templates[name]
}

func (p PromptSet) Format(name string, args ...interface{}) string {
	return fmt.Sprintf(p.templates[name], args...)
}

func PromptNames() []string {
	names := make([]string, 0, len(promptSlots))
	for name := range promptSlots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VerifierPrompts returns the templates a Verifier for this set should use.
func (p PromptSet) VerifierPrompts() verifier.Prompts {
	return verifier.Prompts{
		AnswerWithContext: p.Get(PromptAnswerWithContext),
		SelfCheck:         p.Get(PromptSelfCheck),
	}
}
