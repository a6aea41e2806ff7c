package models

import "time"

// SyncStatus is the outcome of one sync cycle.
type SyncStatus string

const (
	SyncSuccess        SyncStatus = "success"
	SyncPartial        SyncStatus = "partial"
	SyncFailed         SyncStatus = "failed"
	SyncAlreadySyncing SyncStatus = "already_syncing"
)

// SyncState is the orchestrator state machine position.
type SyncState string

const (
	StateIdle        SyncState = "idle"
	StateSyncing     SyncState = "syncing"
	StateSuccessIdle SyncState = "success_idle"
	StatePartialIdle SyncState = "partial_idle"
	StateFailedIdle  SyncState = "failed_idle"
)

// SyncResult is returned by a sync cycle. Per-item failures are listed in
// Errors and never abort the cycle.
type SyncResult struct {
	Status     SyncStatus
	Synced     int
	Resolved   int
	Conflicts  int
	Failed     int
	EventsSent int
	Errors     []error
	// Backlog is set when the batch was full and pending work remains.
	Backlog   bool
	StartedAt time.Time
	Duration  time.Duration
}

// SyncHistoryRecord is one entry of the append-only sync log.
type SyncHistoryRecord struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Status    SyncStatus    `json:"status"`
	Synced    int           `json:"synced"`
	Resolved  int           `json:"resolved"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// QueueCounts breaks a queue down by status.
type QueueCounts struct {
	Pending  int `json:"pending"`
	Synced   int `json:"synced"`
	Conflict int `json:"conflict"`
	Failed   int `json:"failed"`
}

// SyncStats is the orchestrator's status report.
type SyncStats struct {
	State        SyncState   `json:"state"`
	Online       bool        `json:"online"`
	LastSync     *time.Time  `json:"last_sync,omitempty"`
	LastStatus   SyncStatus  `json:"last_status,omitempty"`
	NextSync     time.Time   `json:"next_sync"`
	Transactions QueueCounts `json:"transactions"`
	Events       QueueCounts `json:"events"`
	Cache        CacheStats  `json:"cache"`
	Media        CacheStats  `json:"media"`
	Watermarks   Watermarks  `json:"watermarks"`
}

// HealthReport lists the conditions an operator should look at.
type HealthReport struct {
	Healthy bool     `json:"healthy"`
	Issues  []string `json:"issues,omitempty"`
}
