package notify

import (
	"github.com/google/uuid"
)

// Event names carried on run messages.
const (
	EventFileFailed   = "file.failed"
	EventRunComplete  = "run.complete"
	EventRunCancelled = "run.cancelled"
)

// RunMessage is the JSON payload published for downstream services that
// want to react to finished conversions.
type RunMessage struct {
	RunID uuid.UUID `json:"runId"`
	Event string    `json:"event"`

	// File and Reason are set for file.failed events.
	File   string `json:"file,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Processed and Failed are set for terminal events.
	Processed int `json:"processed,omitempty"`
	Failed    int `json:"failed,omitempty"`
}
