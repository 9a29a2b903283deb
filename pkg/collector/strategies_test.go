package collector

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

func mustRequest(t *testing.T, kind request.TaskKind, scope request.Scope, params map[string]request.Param) *request.Request {
	t.Helper()
	req, err := request.New(kind, scope, params, 10000)
	if err != nil {
		t.Fatalf("request.New() error = %v", err)
	}
	return req
}

func TestDependencyCollectorApplicability(t *testing.T) {
	c := NewDependencyCollector()

	withContent := map[string]request.Param{"file_content": request.String("import \"fmt\"")}

	tests := []struct {
		name   string
		scope  request.Scope
		params map[string]request.Param
		want   bool
	}{
		{"module scope with content", request.ScopeModule, withContent, true},
		{"global scope with content", request.ScopeGlobal, withContent, true},
		{"local scope below minimum", request.ScopeLocal, withContent, false},
		{"missing file_content", request.ScopeModule, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustRequest(t, request.TaskRefactoring, tt.scope, tt.params)
			if got := c.Applicable(req); got != tt.want {
				t.Errorf("Applicable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependencyCollectorCollect(t *testing.T) {
	c := NewDependencyCollector()
	src := "package main\n\nimport \"fmt\"\nimport \"os\"\n\nfunc main() {}\n"
	req := mustRequest(t, request.TaskRefactoring, request.ScopeModule, map[string]request.Param{
		"file_content": request.String(src),
		"file_path":    request.String("main.go"),
	})

	frag, err := c.Collect(context.Background(), req)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if frag == nil {
		t.Fatal("Collect() returned nothing")
	}
	if frag.Type != TypeCodeDependencies {
		t.Errorf("Type = %v", frag.Type)
	}
	if frag.Metadata["dependency_count"] != "2" {
		t.Errorf("dependency_count = %q, want 2", frag.Metadata["dependency_count"])
	}
	if frag.Metadata["file_path"] != "main.go" {
		t.Errorf("file_path = %q", frag.Metadata["file_path"])
	}
	if frag.Relevance <= 0 || frag.Relevance > 1 {
		t.Errorf("Relevance = %v out of range", frag.Relevance)
	}
}

func TestDependencyCollectorNoDeclarations(t *testing.T) {
	c := NewDependencyCollector()
	req := mustRequest(t, request.TaskRefactoring, request.ScopeModule, map[string]request.Param{
		"file_content": request.String("func add(a, b int) int { return a + b }"),
	})

	frag, err := c.Collect(context.Background(), req)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if frag != nil {
		t.Error("Collect() should return nothing without dependency lines")
	}
}

func TestRuntimeErrorCollector(t *testing.T) {
	c := NewRuntimeErrorCollector()
	log := "starting server\nERROR: connection refused\nrequest served\npanic: nil pointer dereference\n"
	req := mustRequest(t, request.TaskBugFixing, request.ScopeLocal, map[string]request.Param{
		"error_log": request.String(log),
	})

	if !c.Applicable(req) {
		t.Fatal("Applicable() = false with error_log present")
	}

	frag, err := c.Collect(context.Background(), req)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if frag == nil {
		t.Fatal("Collect() returned nothing")
	}
	if frag.Metadata["error_lines"] != "2" {
		t.Errorf("error_lines = %q, want 2", frag.Metadata["error_lines"])
	}
	// Debugging task kinds rate error context highest.
	if frag.Relevance != 0.9 {
		t.Errorf("Relevance = %v, want 0.9 for bug fixing", frag.Relevance)
	}

	review := mustRequest(t, request.TaskCodeReview, request.ScopeLocal, map[string]request.Param{
		"error_log": request.String(log),
	})
	frag, _ = c.Collect(context.Background(), review)
	if frag.Relevance != 0.6 {
		t.Errorf("Relevance = %v, want 0.6 for code review", frag.Relevance)
	}
}

func TestDomainExampleCollector(t *testing.T) {
	corpus := map[request.TaskKind][]Example{
		request.TaskTestGeneration: {
			{Title: "table driven test", Content: "table driven tests iterate cases", Aspects: []string{"testing"}},
		},
	}
	c := NewDomainExampleCollector(corpus)

	exact := mustRequest(t, request.TaskTestGeneration, request.ScopeProject, nil)
	if !c.Applicable(exact) {
		t.Fatal("Applicable() = false with examples for the kind")
	}

	other := mustRequest(t, request.TaskDesign, request.ScopeProject, nil)
	if c.Applicable(other) {
		t.Error("Applicable() = true for a kind without examples")
	}
	if !c.ApplicableLoosely(other) {
		t.Error("ApplicableLoosely() = false with a non-empty corpus")
	}

	frag, err := c.Collect(context.Background(), exact)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if frag == nil {
		t.Fatal("Collect() returned nothing")
	}
	exactRelevance := frag.Relevance

	// A loose-round fallback match is discounted against an exact one.
	looseFrag, err := c.Collect(context.Background(), other)
	if err != nil {
		t.Fatalf("Collect() loose error = %v", err)
	}
	if looseFrag == nil {
		t.Fatal("Collect() loose returned nothing")
	}
	if looseFrag.Relevance >= exactRelevance {
		t.Errorf("loose relevance %v should be below exact %v", looseFrag.Relevance, exactRelevance)
	}
}

func TestKeywordCollector(t *testing.T) {
	c := NewKeywordCollector()
	corpus := "the parser reads tokens from the lexer\n\nthe renderer draws frames onto the screen\n\nthe scheduler assigns workers to queues"
	req := mustRequest(t, request.TaskExplanation, request.ScopeLocal, map[string]request.Param{
		"query":  request.String("how does the parser handle tokens"),
		"corpus": request.String(corpus),
	})

	if !c.Applicable(req) {
		t.Fatal("Applicable() = false with query and corpus present")
	}

	frag, err := c.Collect(context.Background(), req)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if frag == nil {
		t.Fatal("Collect() returned nothing")
	}
	if frag.Content != "the parser reads tokens from the lexer" {
		t.Errorf("Collect() picked %q", frag.Content)
	}

	noQuery := mustRequest(t, request.TaskExplanation, request.ScopeLocal, map[string]request.Param{
		"corpus": request.String(corpus),
	})
	if c.Applicable(noQuery) {
		t.Error("Applicable() = true without query")
	}
}

func TestWordOverlap(t *testing.T) {
	if got := wordOverlap("alpha beta", "alpha beta"); got != 1 {
		t.Errorf("identical sets overlap = %v, want 1", got)
	}
	if got := wordOverlap("alpha", "gamma"); got != 0 {
		t.Errorf("disjoint sets overlap = %v, want 0", got)
	}
	if got := wordOverlap("", "anything"); got != 0 {
		t.Errorf("empty query overlap = %v, want 0", got)
	}
}
