package rates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog() *Snapshot {
	return &Snapshot{
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PerDiem: map[entity.BeneficiaryCategory]CategoryRates{
			entity.CategoryTitular:       {Viatico: dec("75.00"), Hospedaje: dec("120.00")},
			entity.CategoryOtrasPersonas: {Viatico: dec("40.00"), Hospedaje: dec("60.00")},
		},
		MealPct: MealPercentages{
			Desayuno: dec("20"),
			Almuerzo: dec("40"),
			Cena:     dec("40"),
		},
		Cutoffs: MealCutoffs{
			Desayuno: 7 * 60,
			Almuerzo: 13 * 60,
			Cena:     19 * 60,
		},
		Tarifas: TransportTarifas{
			TerrestreKM: dec("0.25"),
			Aereo:       dec("150.00"),
			Acuatico:    dec("50.00"),
		},
		RegionIncrements: map[string]decimal.Decimal{
			"CENTROAMERICA": dec("20"),
		},
		RefrendoThreshold: dec("1000.00"),
		CashLimit:         dec("300.00"),
		PresentationDays:  10,
	}
}

func tripMission(category entity.BeneficiaryCategory, days int) *entity.Mission {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &entity.Mission{
		ID:          1,
		Type:        entity.TypeViaticos,
		Category:    category,
		Destination: "David, Chiriquí",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, days-1),
	}
}

func TestCompute_DomesticMultiDay(t *testing.T) {
	// TITULAR, 3 days, no departure or return times: full meals plus
	// lodging every day. 75.00 + 120.00 per day.
	b, err := Compute(tripMission(entity.CategoryTitular, 3), testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if len(b.PerDiemItems) != 3 {
		t.Fatalf("per-diem items = %d, want 3", len(b.PerDiemItems))
	}
	first := b.PerDiemItems[0]
	if !first.Desayuno.Equal(dec("15")) || !first.Almuerzo.Equal(dec("30")) || !first.Cena.Equal(dec("30")) {
		t.Errorf("meal breakdown = %s/%s/%s, want 15/30/30", first.Desayuno, first.Almuerzo, first.Cena)
	}
	if !first.Hospedaje.Equal(dec("120.00")) {
		t.Errorf("hospedaje = %s, want 120.00", first.Hospedaje)
	}
	if !b.ComputedAmount.Equal(dec("585.00")) {
		t.Errorf("computed amount = %s, want 585.00", b.ComputedAmount)
	}
	if b.RequiresRefrendoHint {
		t.Error("refrendo hint = true for 585.00 against threshold 1000.00")
	}
}

func TestCompute_InternationalIncrement(t *testing.T) {
	// Base per-diem 40.00 with a 20% region increment yields a 48.00
	// per-diem line. Single-day trip, so no lodging.
	m := tripMission(entity.CategoryOtrasPersonas, 1)
	m.International = true
	m.Region = "CENTROAMERICA"

	b, err := Compute(m, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(b.PerDiemItems) != 1 {
		t.Fatalf("per-diem items = %d, want 1", len(b.PerDiemItems))
	}
	item := b.PerDiemItems[0]
	if !item.Hospedaje.IsZero() {
		t.Errorf("hospedaje on a single-day trip = %s, want 0", item.Hospedaje)
	}
	if !item.Total().Equal(dec("48.00")) {
		t.Errorf("per-diem line = %s, want 48.00", item.Total())
	}
	if !b.ComputedAmount.Equal(dec("48.00")) {
		t.Errorf("computed amount = %s, want 48.00", b.ComputedAmount)
	}
}

func TestCompute_UnknownRegionIsHardError(t *testing.T) {
	m := tripMission(entity.CategoryOtrasPersonas, 2)
	m.International = true
	m.Region = "ANTARTIDA"

	_, err := Compute(m, testCatalog())
	if workflow.KindOf(err) != workflow.KindCalculationError {
		t.Fatalf("kind = %q, want %q", workflow.KindOf(err), workflow.KindCalculationError)
	}
}

func TestCompute_UnknownCategoryIsHardError(t *testing.T) {
	m := tripMission(entity.CategoryOtrosServidores, 2)

	_, err := Compute(m, testCatalog())
	if workflow.KindOf(err) != workflow.KindCalculationError {
		t.Fatalf("kind = %q, want %q", workflow.KindOf(err), workflow.KindCalculationError)
	}
}

func TestCompute_RoundsOnlyAtAggregation(t *testing.T) {
	// A base of 10.01 produces fractional cents per meal. Rounding each
	// line would drift the total to 30.00; the correct total is 30.03.
	snap := testCatalog()
	snap.PerDiem[entity.CategoryOtrasPersonas] = CategoryRates{
		Viatico:   dec("10.01"),
		Hospedaje: decimal.Zero,
	}

	b, err := Compute(tripMission(entity.CategoryOtrasPersonas, 3), snap)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !b.PerDiemItems[0].Desayuno.Equal(dec("2.002")) {
		t.Errorf("desayuno line = %s, want unrounded 2.002", b.PerDiemItems[0].Desayuno)
	}
	if !b.ComputedAmount.Equal(dec("30.03")) {
		t.Errorf("computed amount = %s, want 30.03", b.ComputedAmount)
	}
}

func TestCompute_MealCutoffBoundaries(t *testing.T) {
	clock := func(h, m int) *time.Time {
		t := time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
		return &t
	}
	lateClock := func(h, m int) *time.Time {
		t := time.Date(2025, 3, 12, h, m, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name         string
		departure    *time.Time
		returnTime   *time.Time
		wantDesayuno bool // first day
		wantAlmuerzo bool // first day
		wantCena     bool // last day
	}{
		{
			name:         "no times qualifies everything",
			wantDesayuno: true, wantAlmuerzo: true, wantCena: true,
		},
		{
			name:         "departure exactly at breakfast cutoff excludes the slot",
			departure:    clock(7, 0),
			wantDesayuno: false, wantAlmuerzo: true, wantCena: true,
		},
		{
			name:         "departure a minute before breakfast cutoff includes it",
			departure:    clock(6, 59),
			wantDesayuno: true, wantAlmuerzo: true, wantCena: true,
		},
		{
			name:         "afternoon departure drops breakfast and lunch",
			departure:    clock(13, 0),
			wantDesayuno: false, wantAlmuerzo: false, wantCena: true,
		},
		{
			name:         "return exactly at dinner cutoff excludes dinner",
			returnTime:   lateClock(19, 0),
			wantDesayuno: true, wantAlmuerzo: true, wantCena: false,
		},
		{
			name:         "return after dinner cutoff includes dinner",
			returnTime:   lateClock(19, 1),
			wantDesayuno: true, wantAlmuerzo: true, wantCena: true,
		},
		{
			name:         "midday return drops dinner on the last day",
			returnTime:   lateClock(13, 0),
			wantDesayuno: true, wantAlmuerzo: true, wantCena: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tripMission(entity.CategoryTitular, 3)
			m.DepartureTime = tt.departure
			m.ReturnTime = tt.returnTime

			b, err := Compute(m, testCatalog())
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			first := b.PerDiemItems[0]
			last := b.PerDiemItems[len(b.PerDiemItems)-1]

			if got := !first.Desayuno.IsZero(); got != tt.wantDesayuno {
				t.Errorf("first-day desayuno qualified = %v, want %v", got, tt.wantDesayuno)
			}
			if got := !first.Almuerzo.IsZero(); got != tt.wantAlmuerzo {
				t.Errorf("first-day almuerzo qualified = %v, want %v", got, tt.wantAlmuerzo)
			}
			if got := !last.Cena.IsZero(); got != tt.wantCena {
				t.Errorf("last-day cena qualified = %v, want %v", got, tt.wantCena)
			}

			// Middle days are never clipped by travel times.
			middle := b.PerDiemItems[1]
			if middle.Desayuno.IsZero() || middle.Almuerzo.IsZero() || middle.Cena.IsZero() {
				t.Errorf("middle day clipped: %s/%s/%s", middle.Desayuno, middle.Almuerzo, middle.Cena)
			}
		})
	}
}

func TestCompute_TransportSegments(t *testing.T) {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	m := tripMission(entity.CategoryTitular, 1)
	m.TransportItems = []entity.TransportItem{
		{Date: date, Type: entity.TransportOficial, Origin: "PAC", Destination: "DAV"},
		{Date: date, Type: entity.TransportTerrestre, Origin: "PAC", Destination: "DAV", DistanceKM: dec("100")},
		{Date: date, Type: entity.TransportAereo, Origin: "PAC", Destination: "BOC"},
		{Date: date, Type: entity.TransportAcuatico, Origin: "BOC", Destination: "ISL"},
	}

	b, err := Compute(m, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantAmounts := []string{"0", "25.00", "150.00", "50.00"}
	for i, want := range wantAmounts {
		if !b.TransportItems[i].Amount.Equal(dec(want)) {
			t.Errorf("segment %d amount = %s, want %s", i, b.TransportItems[i].Amount, want)
		}
	}
	if !b.TransportTotal.Equal(dec("225.00")) {
		t.Errorf("transport total = %s, want 225.00", b.TransportTotal)
	}
}

func TestCompute_TransportErrors(t *testing.T) {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item entity.TransportItem
	}{
		{"terrestrial without distance", entity.TransportItem{Date: date, Type: entity.TransportTerrestre, Origin: "PAC", Destination: "DAV"}},
		{"unsupported type", entity.TransportItem{Date: date, Type: "TELETRANSPORTE", Origin: "PAC", Destination: "DAV"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tripMission(entity.CategoryTitular, 1)
			m.TransportItems = []entity.TransportItem{tt.item}

			_, err := Compute(m, testCatalog())
			if workflow.KindOf(err) != workflow.KindCalculationError {
				t.Errorf("kind = %q, want %q", workflow.KindOf(err), workflow.KindCalculationError)
			}
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	m := tripMission(entity.CategoryTitular, 3)
	m.TransportItems = []entity.TransportItem{
		{Date: m.StartDate, Type: entity.TransportTerrestre, Origin: "PAC", Destination: "DAV", DistanceKM: dec("438.7")},
	}
	snap := testCatalog()

	first, err := Compute(m, snap)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(m, snap)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !first.ComputedAmount.Equal(second.ComputedAmount) {
		t.Errorf("recompute drifted: %s then %s", first.ComputedAmount, second.ComputedAmount)
	}
	if len(first.PerDiemItems) != len(second.PerDiemItems) {
		t.Errorf("per-diem items = %d then %d", len(first.PerDiemItems), len(second.PerDiemItems))
	}
}

func TestCompute_RefrendoHint(t *testing.T) {
	snap := testCatalog()

	below := tripMission(entity.CategoryTitular, 3) // 585.00
	b, err := Compute(below, snap)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if b.RequiresRefrendoHint {
		t.Error("hint = true below threshold")
	}

	above := tripMission(entity.CategoryTitular, 7) // 1365.00
	b, err = Compute(above, snap)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !b.RequiresRefrendoHint {
		t.Error("hint = false above threshold")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"07:00", 7 * 60, false},
		{"13:30", 13*60 + 30, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"mediodía", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
