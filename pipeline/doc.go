// Package pipeline orchestrates context optimization for tool requests.
//
// One call to ProcessToolRequest runs the full chain: fingerprint the
// request, consult the durable response cache, coalesce concurrent
// identical executions, record token usage, summarize the response,
// enforce the token budget, and persist the optimized result. Each stage
// can be toggled per call through Options; subsystem failures other than
// the executor's own error degrade the request instead of failing it.
package pipeline
