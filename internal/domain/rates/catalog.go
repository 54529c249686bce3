package rates

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// TimeOfDay is a meal cutoff expressed as minutes since midnight
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// FromClock converts a wall-clock time to its TimeOfDay
func FromClock(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// CategoryRates are the base daily rates for one beneficiary category
type CategoryRates struct {
	Viatico   decimal.Decimal
	Hospedaje decimal.Decimal
}

// MealPercentages split the daily per-diem across meal slots
type MealPercentages struct {
	Desayuno decimal.Decimal
	Almuerzo decimal.Decimal
	Cena     decimal.Decimal
}

// MealCutoffs are the configured slot boundaries. A trip that starts or
// ends exactly at a cutoff is exclusive of that slot.
type MealCutoffs struct {
	Desayuno TimeOfDay
	Almuerzo TimeOfDay
	Cena     TimeOfDay
}

// TransportTarifas are the configured transport rates
type TransportTarifas struct {
	TerrestreKM decimal.Decimal
	Aereo       decimal.Decimal
	Acuatico    decimal.Decimal
}

// Snapshot is a read-only rate catalog effective on a given date. Historical
// requests recompute against the snapshot they were created under, so rate
// changes only affect future requests.
type Snapshot struct {
	EffectiveDate time.Time

	PerDiem  map[entity.BeneficiaryCategory]CategoryRates
	MealPct  MealPercentages
	Cutoffs  MealCutoffs
	Tarifas  TransportTarifas

	// RegionIncrements maps destination region code to a percentage
	// increment over the national base. An unknown code is a hard
	// calculation error, never a zero default.
	RegionIncrements map[string]decimal.Decimal

	// RefrendoThreshold is the CGR countersignature bound (exclusive).
	RefrendoThreshold decimal.Decimal

	// CashLimit caps payments in efectivo.
	CashLimit decimal.Decimal

	// PresentationDays is the deadline, in days after return, for
	// presenting expense support.
	PresentationDays int
}

// RatesFor returns the base rates for a category
func (s *Snapshot) RatesFor(category entity.BeneficiaryCategory) (CategoryRates, error) {
	r, ok := s.PerDiem[category]
	if !ok {
		return CategoryRates{}, workflow.NewError(workflow.KindCalculationError,
			"no per-diem rates configured for category %s", category)
	}
	return r, nil
}

// IncrementFor resolves the international increment for a region code
func (s *Snapshot) IncrementFor(region string) (decimal.Decimal, error) {
	pct, ok := s.RegionIncrements[region]
	if !ok {
		return decimal.Zero, workflow.NewError(workflow.KindCalculationError,
			"unknown destination region %q", region)
	}
	return pct, nil
}
