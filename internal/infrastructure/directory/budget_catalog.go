package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// BudgetCatalog reads budget partida codes from the legacy HR database.
// Like the employee directory, it never writes.
type BudgetCatalog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBudgetCatalog creates a catalog over the legacy HR database
func NewBudgetCatalog(db *sql.DB, logger *zap.Logger) port.BudgetCatalog {
	return &BudgetCatalog{
		db:     db,
		logger: logger,
	}
}

// BudgetCodeExists reports whether the partida code is registered in the
// institutional chart of accounts (cwprecue).
func (c *BudgetCatalog) BudgetCodeExists(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, workflow.NewError(workflow.KindValidationFailed, "budget code is required")
	}

	query := `SELECT COUNT(1) FROM cwprecue WHERE CodCue = ?`

	var count int
	if err := c.db.QueryRowContext(ctx, query, code).Scan(&count); err != nil {
		c.logger.Error("Failed to look up budget code", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to look up budget code: %w", err)
	}
	return count > 0, nil
}

// Verify interface compliance
var _ port.BudgetCatalog = (*BudgetCatalog)(nil)
