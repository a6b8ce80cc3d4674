// Package summarize shrinks tool response text under a named mode.
//
// Techniques apply in fixed priority order: redundant whitespace is
// stripped, consecutive duplicate lines are collapsed, long fenced code
// blocks are elided, and finally a hard length cap is enforced. The pass
// is strictly non-expansive: when no technique reduces the content, the
// input is returned unchanged and no techniques are reported.
package summarize
