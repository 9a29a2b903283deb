// Package request defines the immutable request model for context assembly.
//
// A Request describes what is being asked of the context engine: the task
// category, the scope breadth, a bag of named parameters, and a token budget.
// Requests are immutable once constructed; refinement produces derived copies
// via WithScope and WithParam rather than mutating in place.
package request

import "errors"

// Validation errors.
var (
	ErrInvalidTaskKind = errors.New("unknown task kind")
	ErrInvalidScope    = errors.New("invalid scope")
	ErrInvalidBudget   = errors.New("token budget must be positive")
)

// TaskKind identifies the category of task a request serves.
type TaskKind string

// Known task kinds.
const (
	TaskCodeGeneration      TaskKind = "code_generation"
	TaskCodeCompletion      TaskKind = "code_completion"
	TaskRefactoring         TaskKind = "refactoring"
	TaskCodeReview          TaskKind = "code_review"
	TaskBugDetection        TaskKind = "bug_detection"
	TaskPerformanceAnalysis TaskKind = "performance_analysis"
	TaskSecurityAnalysis    TaskKind = "security_analysis"
	TaskDocumentation       TaskKind = "documentation"
	TaskExplanation         TaskKind = "explanation"
	TaskTestGeneration      TaskKind = "test_generation"
	TaskTestDebugging       TaskKind = "test_debugging"
	TaskBugFixing           TaskKind = "bug_fixing"
	TaskErrorDiagnosis      TaskKind = "error_diagnosis"
	TaskDesign              TaskKind = "design"
	TaskArchitectureReview  TaskKind = "architecture_review"
	TaskGeneralQuery        TaskKind = "general_query"
)

var knownKinds = map[TaskKind]struct{}{
	TaskCodeGeneration:      {},
	TaskCodeCompletion:      {},
	TaskRefactoring:         {},
	TaskCodeReview:          {},
	TaskBugDetection:        {},
	TaskPerformanceAnalysis: {},
	TaskSecurityAnalysis:    {},
	TaskDocumentation:       {},
	TaskExplanation:         {},
	TaskTestGeneration:      {},
	TaskTestDebugging:       {},
	TaskBugFixing:           {},
	TaskErrorDiagnosis:      {},
	TaskDesign:              {},
	TaskArchitectureReview:  {},
	TaskGeneralQuery:        {},
}

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Scope describes the breadth of a request. The ordering is semantically
// meaningful: ScopeLocal < ScopeModule < ScopeProject < ScopeGlobal, and a
// collector declares the minimum scope at which it applies.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeModule
	ScopeProject
	ScopeGlobal
)

// Valid reports whether s is within the known range.
func (s Scope) Valid() bool {
	return s >= ScopeLocal && s <= ScopeGlobal
}

// Broaden returns the next wider scope, saturating at ScopeGlobal.
func (s Scope) Broaden() Scope {
	if s >= ScopeGlobal {
		return ScopeGlobal
	}
	return s + 1
}

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeModule:
		return "module"
	case ScopeProject:
		return "project"
	case ScopeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Request is an immutable description of one ask against the context engine.
// Construct with New; derive widened copies with WithScope / WithParam.
type Request struct {
	kind   TaskKind
	scope  Scope
	params map[string]Param
	budget int
}

// New constructs a validated Request. The params map is copied, so the caller
// may reuse or mutate its own map afterwards.
func New(kind TaskKind, scope Scope, params map[string]Param, budget int) (*Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidTaskKind
	}
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}

	copied := make(map[string]Param, len(params))
	for k, v := range params {
		copied[k] = v
	}

	return &Request{
		kind:   kind,
		scope:  scope,
		params: copied,
		budget: budget,
	}, nil
}

// Kind returns the task kind.
func (r *Request) Kind() TaskKind { return r.kind }

// Scope returns the scope breadth.
func (r *Request) Scope() Scope { return r.scope }

// Budget returns the token budget.
func (r *Request) Budget() int { return r.budget }

// Param looks up a named parameter.
func (r *Request) Param(key string) (Param, bool) {
	p, ok := r.params[key]
	return p, ok
}

// StringParam looks up a named parameter and returns its string value.
// Returns false if the parameter is absent or not a string.
func (r *Request) StringParam(key string) (string, bool) {
	p, ok := r.params[key]
	if !ok {
		return "", false
	}
	return p.AsString()
}

// ParamKeys returns the names of all parameters, in no particular order.
func (r *Request) ParamKeys() []string {
	keys := make([]string, 0, len(r.params))
	for k := range r.params {
		keys = append(keys, k)
	}
	return keys
}

// WithScope returns a copy of the request at the given scope.
func (r *Request) WithScope(scope Scope) *Request {
	derived := r.clone()
	derived.scope = scope
	return derived
}

// WithParam returns a copy of the request with one parameter added or replaced.
func (r *Request) WithParam(key string, p Param) *Request {
	derived := r.clone()
	derived.params[key] = p
	return derived
}

func (r *Request) clone() *Request {
	params := make(map[string]Param, len(r.params))
	for k, v := range r.params {
		params[k] = v
	}
	return &Request{
		kind:   r.kind,
		scope:  r.scope,
		params: params,
		budget: r.budget,
	}
}
