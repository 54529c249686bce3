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

// EmployeeDirectory reads beneficiary data from the legacy HR database.
// The connection is opened read-only; this system never writes HR data.
type EmployeeDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeDirectory creates a directory over the legacy HR database
func NewEmployeeDirectory(db *sql.DB, logger *zap.Logger) port.EmployeeDirectory {
	return &EmployeeDirectory{
		db:     db,
		logger: logger,
	}
}

// LookupActiveEmployee resolves an employee by cédula or personnel number.
// Inactive employees (estado de baja) are rejected: a mission cannot be
// requested for someone no longer in service.
func (d *EmployeeDirectory) LookupActiveEmployee(ctx context.Context, identifier string) (*port.EmployeeProfile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, workflow.NewError(workflow.KindValidationFailed, "beneficiary identifier is required")
	}

	query := `
		SELECT cedula, nombre_completo, departamento, estado
		FROM empleados
		WHERE cedula = ? OR numero_posicion = ?
	`

	var (
		cedula string
		nombre string
		depto  sql.NullString
		estado string
	)
	err := d.db.QueryRowContext(ctx, query, identifier, identifier).Scan(&cedula, &nombre, &depto, &estado)
	if err == sql.ErrNoRows {
		return nil, workflow.NewError(workflow.KindNotFound, "employee %s not found", identifier)
	}
	if err != nil {
		d.logger.Error("Failed to look up employee", zap.String("identifier", identifier), zap.Error(err))
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}

	active := strings.EqualFold(estado, "ACTIVO")
	if !active {
		return nil, workflow.NewError(workflow.KindValidationFailed,
			"employee %s is not active (estado %s)", identifier, estado)
	}

	return &port.EmployeeProfile{
		PersonalID: cedula,
		Name:       nombre,
		Department: depto.String,
		Active:     true,
	}, nil
}

// Verify interface compliance
var _ port.EmployeeDirectory = (*EmployeeDirectory)(nil)
