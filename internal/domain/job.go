package domain

// JobStatus enumerates the states of one background-removal job. A job
// lives entirely within the request that created it and is never persisted.
type JobStatus string

const (
	JobUnsubmitted JobStatus = "unsubmitted"
	JobPending     JobStatus = "pending"
	JobSucceeded   JobStatus = "succeeded"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job tracks one image through the external prediction service.
type Job struct {
	Status       JobStatus
	PredictionID string
	OutputURL    string
}
