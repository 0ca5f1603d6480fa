package source

import "errors"

var (
	// ErrUnreadable is returned when the source cannot be opened or decoded.
	ErrUnreadable = errors.New("source unreadable")
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)
