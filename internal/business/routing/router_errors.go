package routing

import "errors"

// Router-specific errors.
var (
	// ErrNilMessage indicates Route was called with a nil message.
	ErrNilMessage = errors.New("cannot route a nil message")
)
