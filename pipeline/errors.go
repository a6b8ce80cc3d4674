package pipeline

import "errors"

var (
	// ErrNilExecutor indicates ProcessToolRequest was called without an executor.
	ErrNilExecutor = errors.New("pipeline: executor is nil")

	// ErrEmptyTool indicates an empty tool name.
	ErrEmptyTool = errors.New("pipeline: tool name is empty")

	// ErrInvalidCacheDuration indicates Options.CacheDuration is negative.
	ErrInvalidCacheDuration = errors.New("pipeline: cache duration must not be negative")
)
