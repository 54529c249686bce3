package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/rates"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/persistence/sqlite"
)

// RateRepository implements port.RateProvider over the catalog tables.
// Snapshots are immutable once published, so resolved snapshots are cached
// for the life of the process.
type RateRepository struct {
	db     *sql.DB
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[int64]*rates.Snapshot
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *sql.DB, logger *zap.Logger) port.RateProvider {
	return &RateRepository{
		db:     db,
		logger: logger,
		cache:  make(map[int64]*rates.Snapshot),
	}
}

// RatesEffectiveOn resolves the catalog snapshot in force on the given date
func (r *RateRepository) RatesEffectiveOn(ctx context.Context, date time.Time) (*rates.Snapshot, error) {
	query := `
		SELECT id, effective_date, desayuno_pct, almuerzo_pct, cena_pct,
			desayuno_cutoff, almuerzo_cutoff, cena_cutoff,
			tarifa_terrestre_km, tarifa_aereo, tarifa_acuatico,
			refrendo_threshold, cash_limit, presentation_days
		FROM rate_snapshots
		WHERE effective_date <= ?
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var (
		id                                           int64
		effectiveDate                                time.Time
		desayunoPct, almuerzoPct, cenaPct            string
		desayunoCutoff, almuerzoCutoff, cenaCutoff   string
		tarifaTerrestre, tarifaAereo, tarifaAcuatico string
		refrendoThreshold, cashLimit                 string
		presentationDays                             int
	)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, date).Scan(
		&id, &effectiveDate,
		&desayunoPct, &almuerzoPct, &cenaPct,
		&desayunoCutoff, &almuerzoCutoff, &cenaCutoff,
		&tarifaTerrestre, &tarifaAereo, &tarifaAcuatico,
		&refrendoThreshold, &cashLimit, &presentationDays,
	)
	if err == sql.ErrNoRows {
		return nil, workflow.NewError(workflow.KindCalculationError,
			"no rate catalog effective on %s", date.Format("2006-01-02"))
	}
	if err != nil {
		r.logger.Error("Failed to resolve rate snapshot", zap.Error(err))
		return nil, fmt.Errorf("failed to resolve rate snapshot: %w", err)
	}

	r.mu.RLock()
	cached, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	snap := &rates.Snapshot{
		EffectiveDate:    effectiveDate,
		PerDiem:          make(map[entity.BeneficiaryCategory]rates.CategoryRates),
		RegionIncrements: make(map[string]decimal.Decimal),
		PresentationDays: presentationDays,
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&snap.MealPct.Desayuno, desayunoPct},
		{&snap.MealPct.Almuerzo, almuerzoPct},
		{&snap.MealPct.Cena, cenaPct},
		{&snap.Tarifas.TerrestreKM, tarifaTerrestre},
		{&snap.Tarifas.Aereo, tarifaAereo},
		{&snap.Tarifas.Acuatico, tarifaAcuatico},
		{&snap.RefrendoThreshold, refrendoThreshold},
		{&snap.CashLimit, cashLimit},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("invalid rate value %q: %w", f.src, err)
		}
	}

	cutoffs := []struct {
		dst *rates.TimeOfDay
		src string
	}{
		{&snap.Cutoffs.Desayuno, desayunoCutoff},
		{&snap.Cutoffs.Almuerzo, almuerzoCutoff},
		{&snap.Cutoffs.Cena, cenaCutoff},
	}
	for _, c := range cutoffs {
		if *c.dst, err = rates.ParseTimeOfDay(c.src); err != nil {
			return nil, fmt.Errorf("invalid cutoff %q: %w", c.src, err)
		}
	}

	if err := r.loadCategories(ctx, id, snap); err != nil {
		return nil, err
	}
	if err := r.loadRegions(ctx, id, snap); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = snap
	r.mu.Unlock()

	return snap, nil
}

func (r *RateRepository) loadCategories(ctx context.Context, snapshotID int64, snap *rates.Snapshot) error {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT category, viatico, hospedaje
		FROM rate_categories WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load category rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, viatico, hospedaje string
		if err := rows.Scan(&category, &viatico, &hospedaje); err != nil {
			return fmt.Errorf("failed to scan category rate: %w", err)
		}
		var cr rates.CategoryRates
		if cr.Viatico, err = decimal.NewFromString(viatico); err != nil {
			return fmt.Errorf("invalid viatico rate %q: %w", viatico, err)
		}
		if cr.Hospedaje, err = decimal.NewFromString(hospedaje); err != nil {
			return fmt.Errorf("invalid hospedaje rate %q: %w", hospedaje, err)
		}
		snap.PerDiem[entity.BeneficiaryCategory(category)] = cr
	}
	return rows.Err()
}

func (r *RateRepository) loadRegions(ctx context.Context, snapshotID int64, snap *rates.Snapshot) error {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT region, increment_pct
		FROM rate_regions WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load region increments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var region, increment string
		if err := rows.Scan(&region, &increment); err != nil {
			return fmt.Errorf("failed to scan region increment: %w", err)
		}
		d, err := decimal.NewFromString(increment)
		if err != nil {
			return fmt.Errorf("invalid region increment %q: %w", increment, err)
		}
		snap.RegionIncrements[region] = d
	}
	return rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *RateRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.RateProvider = (*RateRepository)(nil)
