package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the complete computed result for one mission. The caller
// persists it; Compute itself has no side effects.
type Breakdown struct {
	PerDiemItems   []entity.PerDiemItem
	TransportItems []entity.TransportItem

	PerDiemTotal   decimal.Decimal
	TransportTotal decimal.Decimal

	// ComputedAmount is the only rounded figure: round-half-up to cents at
	// final aggregation, never per line, so totals stay bit-reproducible.
	ComputedAmount decimal.Decimal

	// RequiresRefrendoHint compares the computed total against the CGR
	// threshold. The binding determination happens at finance approval
	// against the approved amount.
	RequiresRefrendoHint bool
}

// Compute derives the full financial breakdown for a mission from a rate
// catalog snapshot. Pure function: identical inputs always produce an
// identical breakdown.
func Compute(m *entity.Mission, snap *Snapshot) (*Breakdown, error) {
	base, err := snap.RatesFor(m.Category)
	if err != nil {
		return nil, err
	}

	viatico := base.Viatico
	hospedaje := base.Hospedaje
	if m.International {
		pct, err := snap.IncrementFor(m.Region)
		if err != nil {
			return nil, err
		}
		multiplier := decimal.NewFromInt(1).Add(pct.Div(hundred))
		viatico = viatico.Mul(multiplier)
		hospedaje = hospedaje.Mul(multiplier)
	}

	breakdown := &Breakdown{}

	perDiemTotal := decimal.Zero
	start := dateOnly(m.StartDate)
	end := dateOnly(m.EndDate)
	singleDay := start.Equal(end)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		firstDay := day.Equal(start)
		lastDay := day.Equal(end)

		var departure, arrival *TimeOfDay
		if firstDay && m.DepartureTime != nil {
			d := FromClock(*m.DepartureTime)
			departure = &d
		}
		if lastDay && m.ReturnTime != nil {
			a := FromClock(*m.ReturnTime)
			arrival = &a
		}

		item := entity.PerDiemItem{
			MissionID: m.ID,
			Date:      day,
			Desayuno:  mealAmount(viatico, snap.MealPct.Desayuno, qualifiesDesayuno(departure, snap.Cutoffs.Desayuno)),
			Almuerzo:  mealAmount(viatico, snap.MealPct.Almuerzo, qualifiesAlmuerzo(departure, arrival, snap.Cutoffs.Almuerzo)),
			Cena:      mealAmount(viatico, snap.MealPct.Cena, qualifiesCena(arrival, snap.Cutoffs.Cena)),
		}
		// Lodging applies every night away; a same-day trip has none.
		if !singleDay {
			item.Hospedaje = hospedaje
		} else {
			item.Hospedaje = decimal.Zero
		}

		breakdown.PerDiemItems = append(breakdown.PerDiemItems, item)
		perDiemTotal = perDiemTotal.Add(item.Total())
	}

	transportTotal := decimal.Zero
	for _, seg := range m.TransportItems {
		amount, err := transportAmount(seg, snap)
		if err != nil {
			return nil, err
		}
		seg.Amount = amount
		breakdown.TransportItems = append(breakdown.TransportItems, seg)
		transportTotal = transportTotal.Add(amount)
	}

	breakdown.PerDiemTotal = perDiemTotal
	breakdown.TransportTotal = transportTotal
	breakdown.ComputedAmount = perDiemTotal.Add(transportTotal).Round(2)
	breakdown.RequiresRefrendoHint = breakdown.ComputedAmount.GreaterThan(snap.RefrendoThreshold)
	return breakdown, nil
}

// qualifiesDesayuno: the traveler must depart strictly before the breakfast
// cutoff. Departing exactly at the boundary excludes the slot.
func qualifiesDesayuno(departure *TimeOfDay, cutoff TimeOfDay) bool {
	if departure == nil {
		return true
	}
	return *departure < cutoff
}

// qualifiesAlmuerzo: travel must strictly straddle the lunch cutoff on the
// sides where a time is known.
func qualifiesAlmuerzo(departure, arrival *TimeOfDay, cutoff TimeOfDay) bool {
	if departure != nil && *departure >= cutoff {
		return false
	}
	if arrival != nil && *arrival <= cutoff {
		return false
	}
	return true
}

// qualifiesCena: the traveler must arrive strictly after the dinner cutoff.
func qualifiesCena(arrival *TimeOfDay, cutoff TimeOfDay) bool {
	if arrival == nil {
		return true
	}
	return *arrival > cutoff
}

func mealAmount(base, pct decimal.Decimal, qualifies bool) decimal.Decimal {
	if !qualifies {
		return decimal.Zero
	}
	return base.Mul(pct.Div(hundred))
}

func transportAmount(seg entity.TransportItem, snap *Snapshot) (decimal.Decimal, error) {
	switch seg.Type {
	case entity.TransportOficial:
		return decimal.Zero, nil
	case entity.TransportTerrestre:
		if seg.DistanceKM.IsZero() || seg.DistanceKM.IsNegative() {
			return decimal.Zero, workflow.NewError(workflow.KindCalculationError,
				"terrestrial segment %s-%s requires a positive distance", seg.Origin, seg.Destination)
		}
		return seg.DistanceKM.Mul(snap.Tarifas.TerrestreKM), nil
	case entity.TransportAereo:
		return snap.Tarifas.Aereo, nil
	case entity.TransportAcuatico:
		return snap.Tarifas.Acuatico, nil
	default:
		return decimal.Zero, workflow.NewError(workflow.KindCalculationError,
			"unsupported transport type %q", seg.Type)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
