package port

import (
	"context"
	"time"

	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/rates"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// MissionRepository defines persistence operations for the Mission aggregate
type MissionRepository interface {
	Create(ctx context.Context, mission *entity.Mission) error
	GetByID(ctx context.Context, id int64) (*entity.Mission, error)
	GetByRequestNumber(ctx context.Context, number string) (*entity.Mission, error)

	// UpdateState moves the mission out of expectedState. A zero rows-affected
	// result means a competing writer got there first and is surfaced as a
	// ConcurrencyConflict.
	UpdateState(ctx context.Context, id int64, expectedState, newState workflow.State) error

	// Update persists the mutable aggregate fields (amounts, flags, payment
	// data) without touching state.
	Update(ctx context.Context, mission *entity.Mission) error

	ReplaceLineItems(ctx context.Context, missionID int64, perDiem []entity.PerDiemItem, transport []entity.TransportItem) error
	ReplaceBudgetAssignments(ctx context.Context, missionID int64, assignments []entity.BudgetAssignment) error
	AddCollectionAction(ctx context.Context, action *entity.CollectionAction) error

	// NextRequestNumber allocates the next request number for the given
	// type and year, formatted VIA-<year>-<seq> or CM-<year>-<seq>.
	NextRequestNumber(ctx context.Context, missionType entity.MissionType, year int) (string, error)

	// NextCollectionNumber allocates the next gestión de cobro number for
	// the given year, formatted GC-<year>-<seq>.
	NextCollectionNumber(ctx context.Context, year int) (string, error)
	AddSignature(ctx context.Context, sig *entity.ElectronicSignature) error

	List(ctx context.Context, filter MissionFilter) ([]*entity.Mission, error)
}

// MissionFilter narrows mission listings
type MissionFilter struct {
	States []workflow.State
	Type   entity.MissionType
	Search string
	Limit  int
	Offset int
}

// HistoryRepository is the append-only audit trail. No update or delete
// exists in this contract; insertion order is the only meaningful order.
type HistoryRepository interface {
	Append(ctx context.Context, record *entity.TransitionRecord) error
	ListByMission(ctx context.Context, missionID int64) ([]*entity.TransitionRecord, error)
}

// RateProvider resolves the rate catalog snapshot effective on a date
type RateProvider interface {
	RatesEffectiveOn(ctx context.Context, date time.Time) (*rates.Snapshot, error)
}

// EmployeeProfile is the cached display projection of a legacy HR record
type EmployeeProfile struct {
	PersonalID string
	Name       string
	Department string
	Active     bool
}

// EmployeeDirectory is the read-only contract over the legacy HR store.
// The narrow interface isolates the engine from that schema's volatility.
type EmployeeDirectory interface {
	LookupActiveEmployee(ctx context.Context, identifier string) (*EmployeeProfile, error)
}

// BudgetCatalog is the read-only contract over the legacy institutional
// budget-code catalog. Partidas referenced by a budget approval must
// exist there.
type BudgetCatalog interface {
	BudgetCodeExists(ctx context.Context, code string) (bool, error)
}

// TransactionManager executes fn within one database transaction. The
// transaction rides on the context so repositories join it transparently.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
