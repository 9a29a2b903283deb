// Package collector defines the collector contract and the fragments it
// produces.
//
// A Collector is one retrieval strategy: given a request it may produce zero
// or one Fragment, an immutable unit of context with a relevance score and a
// token estimate. Strategies are polymorphic over the Collector interface and
// never share state with one another; cross-collector signal flows only
// through the request's parameter map.
//
// The Registry holds registered collectors keyed by name. Registration order
// is preserved so that priority ties break deterministically, and mutation is
// snapshot-based: an assembly round iterates a copy, so a concurrent Replace
// (experiment promotion) is observed either entirely or not at all.
//
// The concrete strategies in this package are deliberately heuristic. Real
// dependency analysis, semantic retrieval, and the like are external
// collaborators; these built-ins exist so the engine has useful defaults and
// the experiment framework has realistic subjects.
package collector
