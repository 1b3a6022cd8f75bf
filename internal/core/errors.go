package core

import "errors"

// Error taxonomy shared by the matching core. Callers wrap these with
// fmt.Errorf("...: %w", ...) so errors.Is keeps working across layers.
var (
	// ErrProviderUnavailable marks a failed or timed out embedding/LLM call.
	// It is always raised before any write in the same logical step, so
	// retrying is safe. Malformed provider output maps here too.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidArgument marks malformed caller input (empty text, negative
	// top-k, dimension mismatch). Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInconsistentIndex signals drift between a vector index and the
	// document store. The matcher recovers locally by skipping the candidate.
	ErrInconsistentIndex = errors.New("inconsistent index state")

	// ErrPersistence marks a failed store write. No partial commit is assumed.
	ErrPersistence = errors.New("persistence failure")
)
