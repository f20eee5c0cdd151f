package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSource describes the export files a run was fed from.
type RunSource struct {
	Events    string `json:"events,omitempty"`
	Manifests string `json:"manifests,omitempty"`
	Costs     string `json:"costs,omitempty"`
	Bulk      string `json:"bulk,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Run represents a single enrichment run as persisted by the store.
type Run struct {
	ID        string         `json:"id"`
	Source    RunSource      `json:"source"`
	Status    RunStatus      `json:"status"`
	Report    *QualityReport `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
