package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitAborted = 1
	ExitPartial = 2
)

// Summary counts per-document outcomes for one run.
type Summary struct {
	Processed    int  `json:"processed"`
	Skipped      int  `json:"skipped"`
	FallbackUsed int  `json:"fallback_used"`
	Incomplete   int  `json:"incomplete"`
	Failed       int  `json:"failed"`
	SinkFailed   int  `json:"sink_failed"`
	Aborted      bool `json:"aborted"`
}

// Add folds a document result into the summary.
func (s *Summary) Add(r Result) {
	switch r.Status {
	case constants.StatusProcessed:
		s.Processed++
		if r.Record != nil && r.Record.Incomplete {
			s.Incomplete++
		}
	case constants.StatusSkipped:
		s.Skipped++
	case constants.StatusFailed:
		s.Failed++
	case constants.StatusSinkFailed:
		s.SinkFailed++
	}
	if r.FallbackUsed && r.Status != constants.StatusFailed {
		s.FallbackUsed++
	}
}

// Total is the number of documents accounted for.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + s.Failed + s.SinkFailed
}

// ExitCode maps the summary to the process exit status.
func (s Summary) ExitCode() int {
	switch {
	case s.Aborted:
		return ExitAborted
	case s.Failed > 0 || s.SinkFailed > 0:
		return ExitPartial
	default:
		return ExitOK
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("processed=%d skipped=%d fallback_used=%d incomplete=%d failed=%d sink_failed=%d",
		s.Processed, s.Skipped, s.FallbackUsed, s.Incomplete, s.Failed, s.SinkFailed)
}
