package collector

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// base carries the declaration every built-in strategy shares: metadata, the
// minimum scope it applies at, and a priority tie-break weight.
type base struct {
	meta     Metadata
	minScope request.Scope
	priority int
}

func (b base) Metadata() Metadata { return b.meta }

func (b base) Priority() int { return b.priority }

// MinScope returns the minimum request scope this strategy applies at.
func (b base) MinScope() request.Scope { return b.minScope }

func (b base) scopeOK(req *request.Request) bool {
	return b.minScope <= req.Scope()
}

// DependencyCollector extracts import-like lines from file content supplied
// on the request. It reads the "file_content" parameter and, for labeling,
// the optional "file_path" parameter.
type DependencyCollector struct {
	base
}

// NewDependencyCollector creates a dependency collector applicable at module
// scope and wider.
func NewDependencyCollector() *DependencyCollector {
	return &DependencyCollector{base: base{
		meta: Metadata{
			Name:        "dependency_analysis",
			Description: "extracts import and dependency declarations from file content",
			Version:     "1.0.0",
			Kind:        KindStatic,
		},
		minScope: request.ScopeModule,
		priority: 80,
	}}
}

var dependencyPrefixes = []string{"import ", "import(", "from ", "require(", "#include", "use "}

// Applicable requires module scope or wider and the file_content parameter.
func (c *DependencyCollector) Applicable(req *request.Request) bool {
	if !c.scopeOK(req) {
		return false
	}
	_, ok := req.StringParam("file_content")
	return ok
}

// Collect scans file content line by line for dependency declarations.
func (c *DependencyCollector) Collect(ctx context.Context, req *request.Request) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, ok := req.StringParam("file_content")
	if !ok {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	var deps []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, prefix := range dependencyPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				deps = append(deps, trimmed)
				break
			}
		}
	}
	if len(deps) == 0 {
		return nil, nil
	}

	// Relevance grows with the share of dependency lines, capped well below
	// certainty: declarations alone never tell the whole story.
	relevance := 0.5 + 0.4*math.Min(1, float64(len(deps))/10)

	frag := NewFragment(c.meta.Name, TypeCodeDependencies, strings.Join(deps, "\n"), relevance)
	frag.Aspects = []string{"dependencies", "imports"}
	frag.Metadata = map[string]string{"dependency_count": fmt.Sprintf("%d", len(deps))}
	if path, ok := req.StringParam("file_path"); ok {
		frag.Metadata["file_path"] = path
	}
	return frag, nil
}

// RuntimeErrorCollector extracts error-looking lines from a runtime log
// supplied in the "error_log" parameter.
type RuntimeErrorCollector struct {
	base
}

// NewRuntimeErrorCollector creates a runtime error collector applicable at
// local scope and wider.
func NewRuntimeErrorCollector() *RuntimeErrorCollector {
	return &RuntimeErrorCollector{base: base{
		meta: Metadata{
			Name:        "runtime_error_analysis",
			Description: "extracts error and panic lines from runtime logs",
			Version:     "1.0.0",
			Kind:        KindDynamic,
		},
		minScope: request.ScopeLocal,
		priority: 90,
	}}
}

var errorMarkers = []string{"error", "panic", "exception", "fatal", "traceback", "fail"}

// Applicable requires the error_log parameter.
func (c *RuntimeErrorCollector) Applicable(req *request.Request) bool {
	if !c.scopeOK(req) {
		return false
	}
	_, ok := req.StringParam("error_log")
	return ok
}

// Collect filters the log down to error lines.
func (c *RuntimeErrorCollector) Collect(ctx context.Context, req *request.Request) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log, ok := req.StringParam("error_log")
	if !ok {
		return nil, nil
	}

	var matched []string
	for _, line := range strings.Split(log, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range errorMarkers {
			if strings.Contains(lower, marker) {
				matched = append(matched, strings.TrimSpace(line))
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	// Error lines are high-signal for debugging task kinds.
	relevance := 0.6
	switch req.Kind() {
	case request.TaskBugFixing, request.TaskErrorDiagnosis, request.TaskTestDebugging:
		relevance = 0.9
	}

	frag := NewFragment(c.meta.Name, TypeRuntimeErrors, strings.Join(matched, "\n"), relevance)
	frag.Aspects = []string{"errors", "runtime"}
	frag.Metadata = map[string]string{"error_lines": fmt.Sprintf("%d", len(matched))}
	return frag, nil
}

// Example is one entry in a DomainExampleCollector corpus.
type Example struct {
	Title   string
	Content string
	Aspects []string
}

// DomainExampleCollector serves curated examples keyed by task kind. The
// corpus is supplied at construction; the optional "query" parameter biases
// selection toward the example with the best keyword overlap.
type DomainExampleCollector struct {
	base
	corpus map[request.TaskKind][]Example
}

// NewDomainExampleCollector creates a domain example collector applicable at
// project scope and wider.
func NewDomainExampleCollector(corpus map[request.TaskKind][]Example) *DomainExampleCollector {
	return &DomainExampleCollector{
		base: base{
			meta: Metadata{
				Name:        "domain_examples",
				Description: "serves curated examples matched to the task kind",
				Version:     "1.0.0",
				Kind:        KindStatic,
			},
			minScope: request.ScopeProject,
			priority: 60,
		},
		corpus: corpus,
	}
}

// Applicable requires examples for the exact task kind.
func (c *DomainExampleCollector) Applicable(req *request.Request) bool {
	if !c.scopeOK(req) {
		return false
	}
	return len(c.corpus[req.Kind()]) > 0
}

// ApplicableLoosely admits the collector on widened rounds whenever the
// corpus is non-empty: an example for a neighboring task kind beats nothing.
func (c *DomainExampleCollector) ApplicableLoosely(req *request.Request) bool {
	if !c.scopeOK(req) {
		return false
	}
	return len(c.corpus) > 0
}

// Collect picks the best-matching example for the request.
func (c *DomainExampleCollector) Collect(ctx context.Context, req *request.Request) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	examples := c.corpus[req.Kind()]
	exact := true
	if len(examples) == 0 {
		// Loose round: fall back to the whole corpus.
		exact = false
		for _, group := range c.corpus {
			examples = append(examples, group...)
		}
	}
	if len(examples) == 0 {
		return nil, nil
	}

	query, _ := req.StringParam("query")
	best := examples[0]
	bestScore := -1.0
	for _, ex := range examples {
		score := wordOverlap(query, ex.Title+" "+ex.Content)
		if score > bestScore {
			bestScore = score
			best = ex
		}
	}

	relevance := 0.5 + 0.3*bestScore
	if !exact {
		relevance *= 0.7
	}

	frag := NewFragment(c.meta.Name, TypeDomainExamples, best.Content, relevance)
	frag.Aspects = append([]string{"examples"}, best.Aspects...)
	frag.Metadata = map[string]string{"example_title": best.Title}
	return frag, nil
}

// KeywordCollector scores paragraphs of a supplied corpus against a query and
// returns the best match. It reads the "query" and "corpus" parameters.
type KeywordCollector struct {
	base
}

// NewKeywordCollector creates a keyword search collector applicable at local
// scope and wider.
func NewKeywordCollector() *KeywordCollector {
	return &KeywordCollector{base: base{
		meta: Metadata{
			Name:        "keyword_search",
			Description: "keyword overlap search over a supplied text corpus",
			Version:     "1.0.0",
			Kind:        KindStatic,
		},
		minScope: request.ScopeLocal,
		priority: 50,
	}}
}

// Applicable requires both the query and corpus parameters.
func (c *KeywordCollector) Applicable(req *request.Request) bool {
	if !c.scopeOK(req) {
		return false
	}
	if _, ok := req.StringParam("query"); !ok {
		return false
	}
	_, ok := req.StringParam("corpus")
	return ok
}

// Collect returns the corpus paragraph with the best query overlap.
func (c *KeywordCollector) Collect(ctx context.Context, req *request.Request) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, ok := req.StringParam("query")
	if !ok {
		return nil, nil
	}
	corpus, ok := req.StringParam("corpus")
	if !ok {
		return nil, nil
	}

	var best string
	bestScore := 0.0
	for _, para := range strings.Split(corpus, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if score := wordOverlap(query, para); score > bestScore {
			bestScore = score
			best = strings.TrimSpace(para)
		}
	}
	if best == "" {
		return nil, nil
	}

	// Exponent rewards high overlap without saturating early.
	relevance := math.Pow(bestScore, 0.8)

	frag := NewFragment(c.meta.Name, TypeCodeSnippet, best, relevance)
	frag.Aspects = []string{"search", "keywords"}
	return frag, nil
}

// wordOverlap computes Jaccard similarity between the word sets of a and b.
func wordOverlap(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	intersection := 0
	union := make(map[string]struct{}, len(wa)+len(wb))
	for w := range wa {
		union[w] = struct{}{}
		if _, ok := wb[w]; ok {
			intersection++
		}
	}
	for w := range wb {
		union[w] = struct{}{}
	}
	return float64(intersection) / float64(len(union))
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:()[]{}\"'`")
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}
