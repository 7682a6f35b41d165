package domain

// BatchStatus tracks the lifecycle stage of one batch run.
type BatchStatus string

const (
	BatchStatusIdle         BatchStatus = "idle"
	BatchStatusDiscovering  BatchStatus = "discovering"
	BatchStatusLoadingModel BatchStatus = "loading_model"
	BatchStatusProcessing   BatchStatus = "processing"
	BatchStatusSummarizing  BatchStatus = "summarizing"
	BatchStatusDone         BatchStatus = "done"
	BatchStatusFailed       BatchStatus = "failed"
)

// MediaFile is one discovered input audio file.
type MediaFile struct {
	Path string
	Name string
	Size int64
}

// TranscriptResult records the outcome of one transcribed file.
type TranscriptResult struct {
	Name    string
	Words   int
	Seconds int
}

// Summary aggregates a finished batch for reporting and notification.
type Summary struct {
	Files   int
	Words   int
	Seconds int
}
