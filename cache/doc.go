// Package cache provides the durable response cache for tool executions.
//
// A Manager enforces TTL policy over a pluggable Store. Three stores ship
// with the package: in-memory (per-process), SQLite (survives restarts),
// and Redis (server-side expiry). Expiry is lazy everywhere: a read past
// an entry's expiry behaves as a miss, and physical reclamation happens
// only in an explicit Cleanup pass.
package cache
