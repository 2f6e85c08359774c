// Package diagnostics reports stage-by-stage progress and notable
// conditions from a compile run (definition loaded, cache hit/miss,
// compile started/finished) to a pluggable sink, adapted from the
// teacher's graph/emit package: the same Emitter/Event shape, narrowed
// from per-node workflow events to per-stage compile events.
package diagnostics

// Event describes one notable occurrence during a compile run.
type Event struct {
	// Stage names the pipeline stage that raised the event, e.g.
	// "load", "cache", "compile", "write".
	Stage string

	// Msg is a short, machine-greppable event name, e.g.
	// "definition_loaded", "cache_hit", "compile_complete".
	Msg string

	// Meta carries event-specific structured data, e.g. rule counts,
	// edge counts, cache keys.
	Meta map[string]any
}
