package file

import "errors"

// ErrInvalidFile reports a queue file whose checksum or framing does not
// hold; the loader rotates such files aside and starts a fresh one.
var ErrInvalidFile = errors.New("invalid queue file")
