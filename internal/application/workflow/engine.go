package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	domainwf "github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// Command carries one transition attempt against a mission
type Command struct {
	MissionID int64
	Action    domainwf.Action
	ActorID   string
	ActorRole domainwf.Role
	Comment   string
	ClientIP  string

	// ApprovedAmount overrides the computed amount when the finance
	// director or the jefe (direct approval) adjusts the figure. Nil
	// means approve the computed amount as is.
	ApprovedAmount *decimal.Decimal

	// PaymentMethod is required for PROCESAR_PAGO
	PaymentMethod entity.PaymentMethod

	// BudgetAssignments replaces the mission's partida set on budget approval
	BudgetAssignments []entity.BudgetAssignment

	// Signature is required for CONFIRMAR_PAGO
	Signature *entity.ElectronicSignature
}

// Result reports the outcome of an applied transition
type Result struct {
	PreviousState    domainwf.State
	NewState         domainwf.State
	RecordID         int64
	RequiresRefrendo *bool
}

// Engine orchestrates the approval workflow. Every successful Apply is
// atomic: the state change and its audit record commit together or not
// at all.
type Engine interface {
	// Apply executes one action against a mission on behalf of an actor
	Apply(ctx context.Context, cmd Command) (*Result, error)

	// CurrentState returns the mission's current workflow state
	CurrentState(ctx context.Context, missionID int64) (domainwf.State, error)

	// PermittedActions lists the actions the role could attempt from the
	// mission's current state, before guard evaluation
	PermittedActions(ctx context.Context, missionID int64, role domainwf.Role) ([]domainwf.Action, error)

	// History returns the mission's audit trail in insertion order
	History(ctx context.Context, missionID int64) ([]*entity.TransitionRecord, error)
}
