package model

import "time"

// RunSummary captures metrics from a single load-and-flatten run.
type RunSummary struct {
	RunID            string
	Source           string
	SourceSHA256     string
	RecordsRead      int64
	RecordsAccepted  int64
	RecordsRejected  int64
	RecordsNoService int64
	ServiceRows      int64
	DurationDecode   time.Duration
	DurationFlatten  time.Duration
	DurationTotal    time.Duration
}
