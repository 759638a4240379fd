package constants

// RunStatus is the canonical status for rows in the runs table.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusExtracted RunStatus = "EXTRACTED" // record persisted
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)
