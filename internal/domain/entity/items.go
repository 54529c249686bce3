package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerDiemItem is one day's per-diem breakdown. Amounts are rate snapshots
// taken at computation time; they are never recomputed retroactively when
// catalog rates change.
type PerDiemItem struct {
	ID           int64           `json:"id"`
	MissionID    int64           `json:"mission_id"`
	Date         time.Time       `json:"date"`
	Desayuno     decimal.Decimal `json:"desayuno"`
	Almuerzo     decimal.Decimal `json:"almuerzo"`
	Cena         decimal.Decimal `json:"cena"`
	Hospedaje    decimal.Decimal `json:"hospedaje"`
	Observations string          `json:"observations,omitempty"`
}

// Total returns the unrounded day total
func (i PerDiemItem) Total() decimal.Decimal {
	return i.Desayuno.Add(i.Almuerzo).Add(i.Cena).Add(i.Hospedaje)
}

// TransportItem is one transport segment. Distances are caller-supplied;
// the engine never recomputes them from geography.
type TransportItem struct {
	ID           int64           `json:"id"`
	MissionID    int64           `json:"mission_id"`
	Date         time.Time       `json:"date"`
	Type         TransportType   `json:"type"`
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	DistanceKM   decimal.Decimal `json:"distance_km"`
	Amount       decimal.Decimal `json:"amount"`
	Observations string          `json:"observations,omitempty"`
}

// BudgetAssignment is a partida presupuestaria attached at the budget stage
type BudgetAssignment struct {
	ID          int64           `json:"id"`
	MissionID   int64           `json:"mission_id"`
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// CollectionAction is a treasury gestión de cobro record
type CollectionAction struct {
	ID               int64            `json:"id"`
	MissionID        int64            `json:"mission_id"`
	Number           string           `json:"number"`
	GeneratedAt      time.Time        `json:"generated_at"`
	GeneratedBy      string           `json:"generated_by"`
	AuthorizedAmount decimal.Decimal  `json:"authorized_amount"`
	BudgetCode       string           `json:"budget_code,omitempty"`
	Status           CollectionStatus `json:"status"`
	Observations     string           `json:"observations,omitempty"`
}

// ElectronicSignature binds a transition record to an identity assertion of
// the actor. Immutable once attached; only the record is modeled, the
// cryptographic provisioning lives outside this engine.
type ElectronicSignature struct {
	ID           int64     `json:"id"`
	MissionID    int64     `json:"mission_id"`
	TransitionID int64     `json:"transition_id"`
	SignerID     string    `json:"signer_id"`
	Assertion    string    `json:"assertion"`
	SignedAt     time.Time `json:"signed_at"`
}
