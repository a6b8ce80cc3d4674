// Package fingerprint derives deterministic request keys for tool calls.
//
// A fingerprint is computed from the tool name and a canonical JSON
// encoding of the parameter map (keys sorted recursively), so logically
// equal requests always share a key regardless of parameter ordering or
// process restarts. Durable caches and in-flight coalescing both key on
// fingerprints.
package fingerprint
