package report

import "errors"

// Assembly errors.
var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrUnknownPartition = errors.New("unknown partition")
)
