// Package suggest ranks candidate tools for free-text queries.
//
// Ranking is lexical: query terms are matched against each registered
// tool's name, keywords, category, and description, and the query's
// intent is classified against a fixed taxonomy. Caller feedback shifts
// a bounded per-tool multiplier so confirmed-useful tools rise without
// ever letting feedback alone promote an unrelated tool past a lexical
// match.
package suggest
