package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// Mission is the aggregate root: one viáticos or caja menuda request with
// its line items, amounts, signatures and workflow state. Line items,
// budget assignments, collection actions and signatures are owned by
// composition and never addressable outside the aggregate.
type Mission struct {
	ID            int64       `json:"id"`
	RequestNumber string      `json:"request_number"`
	Type          MissionType `json:"type"`

	// BeneficiaryID references the legacy HR employee record. The engine
	// holds it as an opaque id plus cached display fields.
	BeneficiaryID   string `json:"beneficiary_id"`
	BeneficiaryName string `json:"beneficiary_name"`
	Department      string `json:"department,omitempty"`

	Category      BeneficiaryCategory `json:"category"`
	Objective     string              `json:"objective"`
	Destination   string              `json:"destination"`
	Region        string              `json:"region,omitempty"`
	International bool                `json:"international"`

	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	DepartureTime *time.Time `json:"departure_time,omitempty"`
	ReturnTime    *time.Time `json:"return_time,omitempty"`

	State workflow.State `json:"state"`

	ComputedAmount decimal.Decimal  `json:"computed_amount"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`

	// RequiresRefrendo is derived once the approved amount is known and
	// never recomputed after the CGR stage. Nil means not yet determined.
	RequiresRefrendo *bool `json:"requires_refrendo,omitempty"`

	// Cheque flags are valid only for VIATICOS and move false -> true only.
	ChequeConfeccionado bool `json:"cheque_confeccionado"`
	ChequeFirmado       bool `json:"cheque_firmado"`

	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`

	PresentationDeadline *time.Time `json:"presentation_deadline,omitempty"`

	PerDiemItems      []PerDiemItem         `json:"per_diem_items,omitempty"`
	TransportItems    []TransportItem       `json:"transport_items,omitempty"`
	BudgetAssignments []BudgetAssignment    `json:"budget_assignments,omitempty"`
	CollectionActions []CollectionAction    `json:"collection_actions,omitempty"`
	Signatures        []ElectronicSignature `json:"signatures,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateDraft checks the invariants the state machine cannot enforce:
// type-specific field requirements, date-range consistency and non-negative
// amounts. Returns a ValidationFailed workflow error on the first violation.
func (m *Mission) ValidateDraft() error {
	if !m.Type.IsValid() {
		return workflow.NewError(workflow.KindValidationFailed, "unknown mission type %q", m.Type)
	}
	if !m.Category.IsValid() {
		return workflow.NewError(workflow.KindValidationFailed, "unknown beneficiary category %q", m.Category)
	}
	if m.BeneficiaryID == "" {
		return workflow.NewError(workflow.KindValidationFailed, "beneficiary is required")
	}
	if m.Destination == "" {
		return workflow.NewError(workflow.KindValidationFailed, "destination is required")
	}
	if m.EndDate.Before(m.StartDate) {
		return workflow.NewError(workflow.KindValidationFailed, "date range: end %s before start %s",
			m.EndDate.Format("2006-01-02"), m.StartDate.Format("2006-01-02"))
	}
	if m.Type == TypeCajaMenuda {
		if m.International || m.Region != "" {
			return workflow.NewError(workflow.KindValidationFailed,
				"caja menuda requests never carry international-region entries")
		}
		if m.ChequeConfeccionado || m.ChequeFirmado {
			return workflow.NewError(workflow.KindValidationFailed,
				"cheque flags apply only to viáticos requests")
		}
	}
	if m.International && m.Region == "" {
		return workflow.NewError(workflow.KindValidationFailed, "international mission requires a region code")
	}
	for _, it := range m.TransportItems {
		if !it.Type.IsValid() {
			return workflow.NewError(workflow.KindValidationFailed, "unknown transport type %q", it.Type)
		}
		if it.DistanceKM.IsNegative() {
			return workflow.NewError(workflow.KindValidationFailed, "negative distance on segment %s-%s", it.Origin, it.Destination)
		}
		if it.Amount.IsNegative() {
			return workflow.NewError(workflow.KindValidationFailed, "negative amount on segment %s-%s", it.Origin, it.Destination)
		}
	}
	return nil
}

// CanEdit reports whether line items may still change
func (m *Mission) CanEdit() bool {
	return m.State.IsEditable()
}

// SetChequeConfeccionado marks the cheque as prepared. VIATICOS only,
// monotonic false -> true.
func (m *Mission) SetChequeConfeccionado() error {
	if m.Type != TypeViaticos {
		return workflow.NewError(workflow.KindValidationFailed, "cheque flags apply only to viáticos requests")
	}
	m.ChequeConfeccionado = true
	return nil
}

// SetChequeFirmado marks the cheque as signed. Requires the cheque to have
// been prepared first.
func (m *Mission) SetChequeFirmado() error {
	if m.Type != TypeViaticos {
		return workflow.NewError(workflow.KindValidationFailed, "cheque flags apply only to viáticos requests")
	}
	if !m.ChequeConfeccionado {
		return workflow.NewError(workflow.KindValidationFailed, "cheque must be prepared before signing")
	}
	m.ChequeFirmado = true
	return nil
}

// SetRequiresRefrendo fixes the refrendo determination. Recomputing after
// the CGR stage would be a correctness bug, so a second write with a
// different value is rejected.
func (m *Mission) SetRequiresRefrendo(v bool) error {
	if m.RequiresRefrendo != nil && *m.RequiresRefrendo != v {
		return workflow.NewError(workflow.KindValidationFailed,
			"requires_refrendo already determined as %v", *m.RequiresRefrendo)
	}
	m.RequiresRefrendo = &v
	return nil
}

// SetApprovedAmount records the amount approved by a reviewer. The computed
// amount is never overwritten by it.
func (m *Mission) SetApprovedAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return workflow.NewError(workflow.KindValidationFailed, "approved amount cannot be negative")
	}
	m.ApprovedAmount = &amount
	return nil
}

// ClearApprovedAmount drops a previously approved partial amount. Called
// when the request is returned for correction; the next finance approval
// must re-state the amount explicitly.
func (m *Mission) ClearApprovedAmount() {
	m.ApprovedAmount = nil
	m.RequiresRefrendo = nil
}

// EffectiveApprovedAmount returns the approved amount, falling back to the
// computed amount when finance has not adjusted it
func (m *Mission) EffectiveApprovedAmount() decimal.Decimal {
	if m.ApprovedAmount != nil {
		return *m.ApprovedAmount
	}
	return m.ComputedAmount
}

// AttachSignature binds a signature record to the aggregate. A signature
// must reference a transition of this mission.
func (m *Mission) AttachSignature(sig ElectronicSignature) error {
	if sig.SignerID == "" {
		return workflow.NewError(workflow.KindValidationFailed, "signature requires a signer id")
	}
	if sig.TransitionID == 0 {
		return workflow.NewError(workflow.KindValidationFailed, "signature requires a transition record")
	}
	sig.MissionID = m.ID
	m.Signatures = append(m.Signatures, sig)
	return nil
}

// ReplaceBudgetAssignments swaps the partida set attached at the budget
// stage. Assignments replace the prior set; they are not merged.
func (m *Mission) ReplaceBudgetAssignments(assignments []BudgetAssignment) error {
	for _, a := range assignments {
		if a.Code == "" {
			return workflow.NewError(workflow.KindValidationFailed, "budget assignment requires a partida code")
		}
		if a.Amount.IsNegative() {
			return workflow.NewError(workflow.KindValidationFailed, "budget assignment %s has negative amount", a.Code)
		}
	}
	for i := range assignments {
		assignments[i].MissionID = m.ID
	}
	m.BudgetAssignments = assignments
	return nil
}

// AddCollectionAction appends a gestión de cobro record
func (m *Mission) AddCollectionAction(ca CollectionAction) error {
	if ca.Number == "" {
		return workflow.NewError(workflow.KindValidationFailed, "collection action requires a number")
	}
	if ca.AuthorizedAmount.IsNegative() {
		return workflow.NewError(workflow.KindValidationFailed, "collection action amount cannot be negative")
	}
	ca.MissionID = m.ID
	if ca.Status == "" {
		ca.Status = CollectionPendiente
	}
	m.CollectionActions = append(m.CollectionActions, ca)
	return nil
}
