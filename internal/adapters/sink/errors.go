package sink

import "errors"

// ErrWrite is returned when the report cannot be written.
var ErrWrite = errors.New("write report")
