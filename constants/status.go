package constants

// Strategy tags which extraction path produced a record. Stored verbatim in the
// record cache and written to the sink's source_strategy column.
type Strategy string

const (
	StrategyVision          Strategy = "vision"
	StrategyTextRecognition Strategy = "text_recognition"
)

// DocumentStatus is the per-document outcome reported in the run summary.
type DocumentStatus string

const (
	StatusProcessed  DocumentStatus = "PROCESSED"
	StatusSkipped    DocumentStatus = "SKIPPED"     // fingerprint already indexed
	StatusFailed     DocumentStatus = "FAILED"      // both strategies failed
	StatusSinkFailed DocumentStatus = "SINK_FAILED" // extracted, but not accepted by the sink
)

// Sink write modes.
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)
