package catalogue

import "errors"

// ErrStreamNotFound is returned when an adapter is asked to operate on a
// stream id it does not hold.
var ErrStreamNotFound = errors.New("catalogue: stream not found")

// ErrUnavailable wraps lower-level connectivity errors (pool exhaustion,
// dial failure) so callers can distinguish "catalogue is down" from a
// query returning no rows.
var ErrUnavailable = errors.New("catalogue: unavailable")
