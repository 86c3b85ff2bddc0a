package chunk

import "errors"

var (
	// ErrInvalidParams is returned when chunking parameters are inconsistent.
	ErrInvalidParams = errors.New("invalid chunking parameters")

	// ErrNegativeCount is returned when a Counter reports a negative token count.
	ErrNegativeCount = errors.New("token counter returned a negative count")

	// ErrCounterRequired is returned when a nil Counter is supplied.
	ErrCounterRequired = errors.New("token counter required")
)
