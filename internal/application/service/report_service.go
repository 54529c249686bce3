package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// ReportService produces treasury exports
type ReportService interface {
	// WritePaidMissionsReport writes an .xlsx workbook listing every paid
	// mission whose payment date falls inside [from, to]
	WritePaidMissionsReport(ctx context.Context, w io.Writer, from, to time.Time) (int, error)
}

type reportServiceImpl struct {
	missionRepo port.MissionRepository
	logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(missionRepo port.MissionRepository, logger Logger) ReportService {
	return &reportServiceImpl{missionRepo: missionRepo, logger: logger}
}

var reportHeaders = []string{
	"Número de Solicitud", "Beneficiario", "Departamento", "Tipo",
	"Destino", "Fecha Inicio", "Fecha Fin",
	"Monto Calculado", "Monto Aprobado", "Método de Pago", "Fecha de Pago", "Estado",
}

// WritePaidMissionsReport writes the paid-missions workbook to w and returns
// the number of rows exported
func (s *reportServiceImpl) WritePaidMissionsReport(ctx context.Context, w io.Writer, from, to time.Time) (int, error) {
	missions, err := s.missionRepo.List(ctx, port.MissionFilter{
		States: []workflow.State{workflow.StatePagado},
	})
	if err != nil {
		s.logger.Error("Failed to list paid missions", "error", err)
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Pagos"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return 0, fmt.Errorf("writing header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(reportHeaders), 1)
		_ = f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	row := 2
	for _, m := range missions {
		if m.PaidAt == nil || m.PaidAt.Before(from) || m.PaidAt.After(to) {
			continue
		}
		values := []interface{}{
			m.RequestNumber,
			m.BeneficiaryName,
			m.Department,
			string(m.Type),
			m.Destination,
			m.StartDate.Format("2006-01-02"),
			m.EndDate.Format("2006-01-02"),
			m.ComputedAmount.StringFixed(2),
			m.EffectiveApprovedAmount().StringFixed(2),
			string(m.PaymentMethod),
			m.PaidAt.Format("2006-01-02"),
			m.State.String(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return 0, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
		row++
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("writing workbook: %w", err)
	}

	exported := row - 2
	s.logger.Info("Paid missions report generated",
		"rows", exported,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"))
	return exported, nil
}
