package dto

import "time"

// SyncOutcome labels how a sync run ended.
type SyncOutcome string

const (
	SyncOutcomeSuccess    SyncOutcome = "success"
	SyncOutcomeValidation SyncOutcome = "validation_failed"
	SyncOutcomeError      SyncOutcome = "error"
)

// SyncStatus is the last-run record served by GET /sync/status.
type SyncStatus struct {
	Running        bool        `json:"running"`
	LastRun        *time.Time  `json:"lastRun,omitempty"`
	LastOutcome    SyncOutcome `json:"lastOutcome,omitempty"`
	LastError      string      `json:"lastError,omitempty"`
	ViolationCount int         `json:"violationCount"`
	RoomCount      int         `json:"roomCount"`
	GroupCount     int         `json:"groupCount"`
}

// SyncTriggerResponse acknowledges an async sync request.
type SyncTriggerResponse struct {
	JobID string `json:"jobId"`
}
