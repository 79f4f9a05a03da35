package store

import "errors"

// ErrClosed is returned by every operation on a closed Context.
var ErrClosed = errors.New("store closed")
