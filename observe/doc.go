// Package observe provides observability primitives for the context
// optimization pipeline.
//
// It is a pure instrumentation library: no caching, no execution, no I/O
// beyond exporter setup. The pipeline wires an Observer in and reports
// request lifecycle, cache, dedupe, and token-budget events through it.
package observe
