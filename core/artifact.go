package core

import "time"

// ExportArtifact is the durable record produced once every required field has
// been collected and summarized.
type ExportArtifact struct {
	SessionID string         `json:"session_id"`
	OwnerID   string         `json:"owner_id"`
	Fields    map[string]any `json:"fields"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

// ExportSink persists export artifacts keyed by session id. A later
// successful export for the same session overwrites the prior artifact.
type ExportSink interface {
	Put(artifact ExportArtifact) error
}
