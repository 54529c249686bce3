package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/persistence/sqlite"
)

// MissionRepository implements port.MissionRepository
type MissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *sql.DB, logger *zap.Logger) port.MissionRepository {
	return &MissionRepository{
		db:     db,
		logger: logger,
	}
}

const missionColumns = `
	id, request_number, type, beneficiary_id, beneficiary_name, department,
	category, objective, destination, region, international,
	start_date, end_date, departure_time, return_time,
	state, computed_amount, approved_amount, requires_refrendo,
	cheque_confeccionado, cheque_firmado,
	payment_method, paid_at, presentation_deadline,
	created_at, updated_at`

// Create inserts a new mission draft
func (r *MissionRepository) Create(ctx context.Context, m *entity.Mission) error {
	query := `
		INSERT INTO missions (
			request_number, type, beneficiary_id, beneficiary_name, department,
			category, objective, destination, region, international,
			start_date, end_date, departure_time, return_time,
			state, computed_amount, approved_amount, requires_refrendo,
			cheque_confeccionado, cheque_firmado,
			payment_method, paid_at, presentation_deadline,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		m.RequestNumber,
		string(m.Type),
		m.BeneficiaryID,
		m.BeneficiaryName,
		m.Department,
		string(m.Category),
		m.Objective,
		m.Destination,
		m.Region,
		m.International,
		m.StartDate,
		m.EndDate,
		m.DepartureTime,
		m.ReturnTime,
		m.State.String(),
		m.ComputedAmount.String(),
		nullDecimal(m.ApprovedAmount),
		nullBool(m.RequiresRefrendo),
		m.ChequeConfeccionado,
		m.ChequeFirmado,
		nullString(string(m.PaymentMethod)),
		m.PaidAt,
		m.PresentationDeadline,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create mission", zap.Error(err))
		return fmt.Errorf("failed to create mission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	m.ID = id
	return nil
}

// GetByID retrieves a mission with its owned collections
func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = ?`

	m, err := r.scanMission(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, workflow.NewError(workflow.KindNotFound, "mission %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get mission by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	if err := r.loadOwned(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByRequestNumber retrieves a mission by its request number
func (r *MissionRepository) GetByRequestNumber(ctx context.Context, number string) (*entity.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE request_number = ?`

	m, err := r.scanMission(r.getExecutor(ctx).QueryRowContext(ctx, query, number))
	if err == sql.ErrNoRows {
		return nil, workflow.NewError(workflow.KindNotFound, "mission %s not found", number)
	}
	if err != nil {
		r.logger.Error("Failed to get mission by request number", zap.String("number", number), zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	if err := r.loadOwned(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateState moves the mission out of expectedState. A stale expected state
// affects zero rows and surfaces as a concurrency conflict.
func (r *MissionRepository) UpdateState(ctx context.Context, id int64, expectedState, newState workflow.State) error {
	query := `
		UPDATE missions
		SET state = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, newState.String(), id, expectedState.String())
	if err != nil {
		r.logger.Error("Failed to update state", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return workflow.NewError(workflow.KindConcurrencyConflict,
			"mission %d is no longer in state %s", id, expectedState)
	}
	return nil
}

// Update persists the mutable aggregate fields without touching state
func (r *MissionRepository) Update(ctx context.Context, m *entity.Mission) error {
	query := `
		UPDATE missions SET
			category = ?, objective = ?, destination = ?, region = ?, international = ?,
			start_date = ?, end_date = ?, departure_time = ?, return_time = ?,
			computed_amount = ?, approved_amount = ?, requires_refrendo = ?,
			cheque_confeccionado = ?, cheque_firmado = ?,
			payment_method = ?, paid_at = ?, presentation_deadline = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(m.Category),
		m.Objective,
		m.Destination,
		m.Region,
		m.International,
		m.StartDate,
		m.EndDate,
		m.DepartureTime,
		m.ReturnTime,
		m.ComputedAmount.String(),
		nullDecimal(m.ApprovedAmount),
		nullBool(m.RequiresRefrendo),
		m.ChequeConfeccionado,
		m.ChequeFirmado,
		nullString(string(m.PaymentMethod)),
		m.PaidAt,
		m.PresentationDeadline,
		m.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update mission", zap.Int64("id", m.ID), zap.Error(err))
		return fmt.Errorf("failed to update mission: %w", err)
	}
	return nil
}

// ReplaceLineItems replaces the per-diem and transport line items
func (r *MissionRepository) ReplaceLineItems(ctx context.Context, missionID int64, perDiem []entity.PerDiemItem, transport []entity.TransportItem) error {
	ex := r.getExecutor(ctx)

	if _, err := ex.ExecContext(ctx, `DELETE FROM per_diem_items WHERE mission_id = ?`, missionID); err != nil {
		return fmt.Errorf("failed to clear per-diem items: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM transport_items WHERE mission_id = ?`, missionID); err != nil {
		return fmt.Errorf("failed to clear transport items: %w", err)
	}

	for i := range perDiem {
		item := &perDiem[i]
		result, err := ex.ExecContext(ctx, `
			INSERT INTO per_diem_items (mission_id, item_date, desayuno, almuerzo, cena, hospedaje, observations)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			missionID, item.Date,
			item.Desayuno.String(), item.Almuerzo.String(), item.Cena.String(), item.Hospedaje.String(),
			item.Observations,
		)
		if err != nil {
			return fmt.Errorf("failed to insert per-diem item: %w", err)
		}
		item.MissionID = missionID
		item.ID, _ = result.LastInsertId()
	}

	for i := range transport {
		seg := &transport[i]
		result, err := ex.ExecContext(ctx, `
			INSERT INTO transport_items (mission_id, item_date, transport_type, origin, destination, distance_km, amount, observations)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			missionID, seg.Date, string(seg.Type), seg.Origin, seg.Destination,
			seg.DistanceKM.String(), seg.Amount.String(), seg.Observations,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transport item: %w", err)
		}
		seg.MissionID = missionID
		seg.ID, _ = result.LastInsertId()
	}

	return nil
}

// ReplaceBudgetAssignments replaces the partida set
func (r *MissionRepository) ReplaceBudgetAssignments(ctx context.Context, missionID int64, assignments []entity.BudgetAssignment) error {
	ex := r.getExecutor(ctx)

	if _, err := ex.ExecContext(ctx, `DELETE FROM budget_assignments WHERE mission_id = ?`, missionID); err != nil {
		return fmt.Errorf("failed to clear budget assignments: %w", err)
	}

	for i := range assignments {
		a := &assignments[i]
		result, err := ex.ExecContext(ctx, `
			INSERT INTO budget_assignments (mission_id, code, amount, description)
			VALUES (?, ?, ?, ?)`,
			missionID, a.Code, a.Amount.String(), a.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert budget assignment: %w", err)
		}
		a.MissionID = missionID
		a.ID, _ = result.LastInsertId()
	}
	return nil
}

// AddCollectionAction appends a gestión de cobro record
func (r *MissionRepository) AddCollectionAction(ctx context.Context, ca *entity.CollectionAction) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO collection_actions (mission_id, number, generated_at, generated_by, authorized_amount, budget_code, status, observations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ca.MissionID, ca.Number, ca.GeneratedAt, ca.GeneratedBy,
		ca.AuthorizedAmount.String(), ca.BudgetCode, string(ca.Status), ca.Observations,
	)
	if err != nil {
		r.logger.Error("Failed to add collection action", zap.Int64("mission_id", ca.MissionID), zap.Error(err))
		return fmt.Errorf("failed to add collection action: %w", err)
	}
	ca.ID, _ = result.LastInsertId()
	return nil
}

// AddSignature appends an electronic signature record
func (r *MissionRepository) AddSignature(ctx context.Context, sig *entity.ElectronicSignature) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO electronic_signatures (mission_id, transition_id, signer_id, assertion, signed_at)
		VALUES (?, ?, ?, ?, ?)`,
		sig.MissionID, sig.TransitionID, sig.SignerID, sig.Assertion, sig.SignedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add signature", zap.Int64("mission_id", sig.MissionID), zap.Error(err))
		return fmt.Errorf("failed to add signature: %w", err)
	}
	sig.ID, _ = result.LastInsertId()
	return nil
}

// NextRequestNumber allocates the next request number for the type and year
func (r *MissionRepository) NextRequestNumber(ctx context.Context, missionType entity.MissionType, year int) (string, error) {
	prefix := "VIA"
	if missionType == entity.TypeCajaMenuda {
		prefix = "CM"
	}
	seq, err := r.nextSequence(ctx, prefix, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq), nil
}

// NextCollectionNumber allocates the next gestión de cobro number
func (r *MissionRepository) NextCollectionNumber(ctx context.Context, year int) (string, error) {
	seq, err := r.nextSequence(ctx, "GC", year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GC-%d-%04d", year, seq), nil
}

func (r *MissionRepository) nextSequence(ctx context.Context, kind string, year int) (int64, error) {
	query := `
		INSERT INTO number_sequences (kind, year, value) VALUES (?, ?, 1)
		ON CONFLICT(kind, year) DO UPDATE SET value = value + 1
		RETURNING value
	`
	var seq int64
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, kind, year).Scan(&seq); err != nil {
		r.logger.Error("Failed to allocate sequence", zap.String("kind", kind), zap.Int("year", year), zap.Error(err))
		return 0, fmt.Errorf("failed to allocate %s sequence: %w", kind, err)
	}
	return seq, nil
}

// List returns missions matching the filter, newest first
func (r *MissionRepository) List(ctx context.Context, filter port.MissionFilter) ([]*entity.Mission, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, s := range filter.States {
			placeholders[i] = "?"
			args = append(args, s.String())
		}
		conditions = append(conditions, "state IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Search != "" {
		conditions = append(conditions, "(request_number LIKE ? OR beneficiary_name LIKE ? OR destination LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	query := `SELECT ` + missionColumns + ` FROM missions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list missions", zap.Error(err))
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*entity.Mission
	for rows.Next() {
		m, err := r.scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range missions {
		if err := r.loadOwned(ctx, m); err != nil {
			return nil, err
		}
	}
	return missions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *MissionRepository) scanMission(row rowScanner) (*entity.Mission, error) {
	var (
		m                    entity.Mission
		missionType          string
		category             string
		state                string
		departureTime        sql.NullTime
		returnTime           sql.NullTime
		computedAmount       string
		approvedAmount       sql.NullString
		requiresRefrendo     sql.NullBool
		paymentMethod        sql.NullString
		paidAt               sql.NullTime
		presentationDeadline sql.NullTime
	)

	err := row.Scan(
		&m.ID, &m.RequestNumber, &missionType,
		&m.BeneficiaryID, &m.BeneficiaryName, &m.Department,
		&category, &m.Objective, &m.Destination, &m.Region, &m.International,
		&m.StartDate, &m.EndDate, &departureTime, &returnTime,
		&state, &computedAmount, &approvedAmount, &requiresRefrendo,
		&m.ChequeConfeccionado, &m.ChequeFirmado,
		&paymentMethod, &paidAt, &presentationDeadline,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Type = entity.MissionType(missionType)
	m.Category = entity.BeneficiaryCategory(category)
	m.State = workflow.State(state)

	if m.ComputedAmount, err = decimal.NewFromString(computedAmount); err != nil {
		return nil, fmt.Errorf("invalid computed amount %q: %w", computedAmount, err)
	}
	if approvedAmount.Valid {
		d, err := decimal.NewFromString(approvedAmount.String)
		if err != nil {
			return nil, fmt.Errorf("invalid approved amount %q: %w", approvedAmount.String, err)
		}
		m.ApprovedAmount = &d
	}
	if requiresRefrendo.Valid {
		v := requiresRefrendo.Bool
		m.RequiresRefrendo = &v
	}
	if departureTime.Valid {
		m.DepartureTime = &departureTime.Time
	}
	if returnTime.Valid {
		m.ReturnTime = &returnTime.Time
	}
	if paymentMethod.Valid {
		m.PaymentMethod = entity.PaymentMethod(paymentMethod.String)
	}
	if paidAt.Valid {
		m.PaidAt = &paidAt.Time
	}
	if presentationDeadline.Valid {
		m.PresentationDeadline = &presentationDeadline.Time
	}

	return &m, nil
}

func (r *MissionRepository) loadOwned(ctx context.Context, m *entity.Mission) error {
	ex := r.getExecutor(ctx)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, item_date, desayuno, almuerzo, cena, hospedaje, observations
		FROM per_diem_items WHERE mission_id = ? ORDER BY item_date ASC, id ASC`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load per-diem items: %w", err)
	}
	m.PerDiemItems = nil
	for rows.Next() {
		var (
			item                                entity.PerDiemItem
			desayuno, almuerzo, cena, hospedaje string
		)
		if err := rows.Scan(&item.ID, &item.Date, &desayuno, &almuerzo, &cena, &hospedaje, &item.Observations); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan per-diem item: %w", err)
		}
		item.MissionID = m.ID
		if item.Desayuno, err = decimal.NewFromString(desayuno); err == nil {
			if item.Almuerzo, err = decimal.NewFromString(almuerzo); err == nil {
				if item.Cena, err = decimal.NewFromString(cena); err == nil {
					item.Hospedaje, err = decimal.NewFromString(hospedaje)
				}
			}
		}
		if err != nil {
			rows.Close()
			return fmt.Errorf("invalid per-diem amount: %w", err)
		}
		m.PerDiemItems = append(m.PerDiemItems, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = ex.QueryContext(ctx, `
		SELECT id, item_date, transport_type, origin, destination, distance_km, amount, observations
		FROM transport_items WHERE mission_id = ? ORDER BY item_date ASC, id ASC`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load transport items: %w", err)
	}
	m.TransportItems = nil
	for rows.Next() {
		var (
			seg                entity.TransportItem
			transportType      string
			distanceKM, amount string
		)
		if err := rows.Scan(&seg.ID, &seg.Date, &transportType, &seg.Origin, &seg.Destination, &distanceKM, &amount, &seg.Observations); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan transport item: %w", err)
		}
		seg.MissionID = m.ID
		seg.Type = entity.TransportType(transportType)
		if seg.DistanceKM, err = decimal.NewFromString(distanceKM); err == nil {
			seg.Amount, err = decimal.NewFromString(amount)
		}
		if err != nil {
			rows.Close()
			return fmt.Errorf("invalid transport amount: %w", err)
		}
		m.TransportItems = append(m.TransportItems, seg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = ex.QueryContext(ctx, `
		SELECT id, code, amount, description
		FROM budget_assignments WHERE mission_id = ? ORDER BY id ASC`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load budget assignments: %w", err)
	}
	m.BudgetAssignments = nil
	for rows.Next() {
		var (
			a      entity.BudgetAssignment
			amount string
		)
		if err := rows.Scan(&a.ID, &a.Code, &amount, &a.Description); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan budget assignment: %w", err)
		}
		a.MissionID = m.ID
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			rows.Close()
			return fmt.Errorf("invalid assignment amount: %w", err)
		}
		m.BudgetAssignments = append(m.BudgetAssignments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = ex.QueryContext(ctx, `
		SELECT id, number, generated_at, generated_by, authorized_amount, budget_code, status, observations
		FROM collection_actions WHERE mission_id = ? ORDER BY id ASC`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load collection actions: %w", err)
	}
	m.CollectionActions = nil
	for rows.Next() {
		var (
			ca     entity.CollectionAction
			status string
			amount string
		)
		if err := rows.Scan(&ca.ID, &ca.Number, &ca.GeneratedAt, &ca.GeneratedBy, &amount, &ca.BudgetCode, &status, &ca.Observations); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan collection action: %w", err)
		}
		ca.MissionID = m.ID
		ca.Status = entity.CollectionStatus(status)
		if ca.AuthorizedAmount, err = decimal.NewFromString(amount); err != nil {
			rows.Close()
			return fmt.Errorf("invalid collection amount: %w", err)
		}
		m.CollectionActions = append(m.CollectionActions, ca)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = ex.QueryContext(ctx, `
		SELECT id, transition_id, signer_id, assertion, signed_at
		FROM electronic_signatures WHERE mission_id = ? ORDER BY id ASC`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load signatures: %w", err)
	}
	m.Signatures = nil
	for rows.Next() {
		var sig entity.ElectronicSignature
		if err := rows.Scan(&sig.ID, &sig.TransitionID, &sig.SignerID, &sig.Assertion, &sig.SignedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan signature: %w", err)
		}
		sig.MissionID = m.ID
		m.Signatures = append(m.Signatures, sig)
	}
	rows.Close()
	return rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *MissionRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Verify interface compliance
var _ port.MissionRepository = (*MissionRepository)(nil)
