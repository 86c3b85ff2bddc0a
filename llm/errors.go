package llm

import "errors"

var (
	// ErrNoProviders is returned when a fallback chain is built with no providers.
	ErrNoProviders = errors.New("at least one provider required")

	// ErrCompleterRequired is returned when a decorator wraps a nil Completer.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidCacheSize is returned when a cache size is not positive.
	ErrInvalidCacheSize = errors.New("cache size must be greater than 0")
)
