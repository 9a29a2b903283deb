package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Type tags the kind of content a fragment carries.
type Type string

const (
	TypeCodeDependencies Type = "code_dependencies"
	TypeDomainExamples   Type = "domain_examples"
	TypeRuntimeErrors    Type = "runtime_errors"
	TypeCodeSnippet      Type = "code_snippet"
	TypeProjectStructure Type = "project_structure"
	TypeDocumentation    Type = "documentation"
)

// Fragment is one retrieved unit of context. A collector creates it, hands it
// to the engine, and nobody mutates it afterwards. Relevance is clamped to
// [0,1] at construction and Tokens is derived from Content.
type Fragment struct {
	Source    string            // metadata name of the producing collector
	Type      Type              // content category
	Content   string            // the text blob itself
	Aspects   []string          // aspect tags, set semantics
	Relevance float64           // in [0,1]
	Metadata  map[string]string // free-form annotations
	Tokens    int               // estimated token count of Content
}

// NewFragment constructs a fragment with a clamped relevance score and a
// derived token estimate. Aspects and Metadata may be filled in by the
// producing collector before the fragment is handed off.
func NewFragment(source string, typ Type, content string, relevance float64) *Fragment {
	return &Fragment{
		Source:    source,
		Type:      typ,
		Content:   content,
		Relevance: clamp01(relevance),
		Tokens:    EstimateTokens(content),
	}
}

// HasAspect reports whether the fragment carries the given aspect tag.
func (f *Fragment) HasAspect(aspect string) bool {
	for _, a := range f.Aspects {
		if a == aspect {
			return true
		}
	}
	return false
}

// DedupKey returns the deduplication key: the fragment type plus a hash of
// the normalized content. The producing collector is deliberately excluded so
// that two strategies retrieving the same text collapse to one fragment.
func (f *Fragment) DedupKey() string {
	sum := sha256.Sum256([]byte(normalizeContent(f.Content)))
	return string(f.Type) + ":" + hex.EncodeToString(sum[:])
}

// Truncate returns a copy of the fragment cut down to at most maxTokens.
// Used only under the truncate fit policy; the receiver is left untouched.
func (f *Fragment) Truncate(maxTokens int) *Fragment {
	if maxTokens <= 0 || maxTokens >= f.Tokens {
		return f
	}
	cut := *f
	limit := maxTokens * charsPerToken
	if limit < len(cut.Content) {
		// Back off to the previous rune boundary so the cut never leaves
		// invalid UTF-8 behind.
		for limit > 0 && !utf8.RuneStart(cut.Content[limit]) {
			limit--
		}
		cut.Content = cut.Content[:limit]
	}
	cut.Tokens = maxTokens
	return &cut
}

const charsPerToken = 4

// EstimateTokens approximates the token count of text. The heuristic is the
// usual ~4 characters per token; exact tokenization belongs to the consumer.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + charsPerToken - 1) / charsPerToken
}

// normalizeContent lowercases and collapses whitespace so that trivially
// reformatted duplicates hash identically.
func normalizeContent(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
