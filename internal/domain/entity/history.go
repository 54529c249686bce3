package entity

import (
	"time"

	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// TransitionRecord is one audit trail entry. Immutable once written; the
// insertion id is the only meaningful order.
type TransitionRecord struct {
	ID            int64           `json:"id"`
	MissionID     int64           `json:"mission_id"`
	ActorID       string          `json:"actor_id"`
	ActorRole     workflow.Role   `json:"actor_role"`
	PreviousState workflow.State  `json:"previous_state"`
	NewState      workflow.State  `json:"new_state"`
	Action        workflow.Action `json:"action"`
	Comment       string          `json:"comment,omitempty"`
	ClientIP      string          `json:"client_ip,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
