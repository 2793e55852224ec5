package domain

import "strings"

// BatchStatus is the lifecycle state of one business date's run. It is always
// derived from the observable contents of the event and output stores; there
// is no persisted ledger that could drift out of sync.
type BatchStatus string

const (
	StatusPending        BatchStatus = "PENDING"
	StatusRawPresent     BatchStatus = "RAW_PRESENT"
	StatusComputing      BatchStatus = "COMPUTING"
	StatusOutputsWritten BatchStatus = "OUTPUTS_WRITTEN"
	StatusArchived       BatchStatus = "ARCHIVED"
	StatusFailed         BatchStatus = "FAILED"
)

var batchStatuses = map[string]BatchStatus{
	"pending":         StatusPending,
	"raw_present":     StatusRawPresent,
	"computing":       StatusComputing,
	"outputs_written": StatusOutputsWritten,
	"archived":        StatusArchived,
	"failed":          StatusFailed,
}

// ParseBatchStatus returns the status for a given label (case-insensitive).
func ParseBatchStatus(label string) (BatchStatus, bool) {
	status, ok := batchStatuses[strings.ToLower(label)]

	return status, ok
}

// BatchRun describes the derived state of one business date.
type BatchRun struct {
	Date            string      `json:"date"`
	Status          BatchStatus `json:"status"`
	InputFileCount  int         `json:"input_file_count"`
	OutputFileCount int         `json:"output_file_count"`
	ArchivedCount   int         `json:"archived_file_count"`
}
