package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes a new transition record and fills in its id
func (r *HistoryRepository) Append(ctx context.Context, record *entity.TransitionRecord) error {
	query := `
		INSERT INTO transition_history (
			mission_id, actor_id, actor_role, previous_state, new_state,
			action, comment, client_ip, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		record.MissionID,
		record.ActorID,
		record.ActorRole.String(),
		record.PreviousState.String(),
		record.NewState.String(),
		record.Action.String(),
		record.Comment,
		record.ClientIP,
		record.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append transition record", zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByMission retrieves all transition records for a mission in insertion
// order. Ordering by id rather than timestamp keeps records written within
// the same clock tick stable.
func (r *HistoryRepository) ListByMission(ctx context.Context, missionID int64) ([]*entity.TransitionRecord, error) {
	query := `
		SELECT id, mission_id, actor_id, actor_role, previous_state, new_state,
			action, comment, client_ip, timestamp
		FROM transition_history
		WHERE mission_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*entity.TransitionRecord
	for rows.Next() {
		var (
			record        entity.TransitionRecord
			actorRole     string
			previousState string
			newState      string
			action        string
		)
		err := rows.Scan(
			&record.ID,
			&record.MissionID,
			&record.ActorID,
			&actorRole,
			&previousState,
			&newState,
			&action,
			&record.Comment,
			&record.ClientIP,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition record: %w", err)
		}
		record.ActorRole = workflow.Role(actorRole)
		record.PreviousState = workflow.State(previousState)
		record.NewState = workflow.State(newState)
		record.Action = workflow.Action(action)
		records = append(records, &record)
	}

	return records, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
