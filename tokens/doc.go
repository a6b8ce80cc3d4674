// Package tokens tracks token usage and enforces response token budgets.
//
// An Optimizer owns per-tool usage records, estimates token counts via a
// pluggable Estimator (deterministic character heuristic by default, real
// tiktoken encodings opt-in), shrinks over-budget responses, and derives
// ranked optimization recommendations from the accumulated history.
package tokens
