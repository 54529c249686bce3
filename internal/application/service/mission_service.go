package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/rates"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MissionInput is the editable portion of a mission request
type MissionInput struct {
	Type          entity.MissionType
	BeneficiaryID string
	Category      entity.BeneficiaryCategory
	Objective     string
	Destination   string
	Region        string
	International bool
	StartDate     time.Time
	EndDate       time.Time
	DepartureTime *time.Time
	ReturnTime    *time.Time

	TransportItems []entity.TransportItem
}

// MissionService manages mission requests outside the workflow engine
type MissionService interface {
	CreateMission(ctx context.Context, input MissionInput) (*entity.Mission, error)
	UpdateDraft(ctx context.Context, id int64, input MissionInput) (*entity.Mission, error)
	Recompute(ctx context.Context, id int64) (*rates.Breakdown, error)
	GetMission(ctx context.Context, id int64) (*entity.Mission, error)
	GetByRequestNumber(ctx context.Context, number string) (*entity.Mission, error)
	ListMissions(ctx context.Context, filter port.MissionFilter) ([]*entity.Mission, error)
}

type missionServiceImpl struct {
	missionRepo port.MissionRepository
	historyRepo port.HistoryRepository
	rates       port.RateProvider
	directory   port.EmployeeDirectory
	txManager   port.TransactionManager
	logger      Logger
}

// NewMissionService creates a new MissionService
func NewMissionService(
	missionRepo port.MissionRepository,
	historyRepo port.HistoryRepository,
	rates port.RateProvider,
	directory port.EmployeeDirectory,
	txManager port.TransactionManager,
	logger Logger,
) MissionService {
	return &missionServiceImpl{
		missionRepo: missionRepo,
		historyRepo: historyRepo,
		rates:       rates,
		directory:   directory,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateMission validates the input, resolves the beneficiary against the
// legacy HR directory, computes the initial amount and persists the draft
func (s *missionServiceImpl) CreateMission(ctx context.Context, input MissionInput) (*entity.Mission, error) {
	profile, err := s.directory.LookupActiveEmployee(ctx, input.BeneficiaryID)
	if err != nil {
		s.logger.Error("Beneficiary lookup failed", "error", err, "beneficiary_id", input.BeneficiaryID)
		return nil, err
	}

	mission := &entity.Mission{
		Type:            input.Type,
		BeneficiaryID:   profile.PersonalID,
		BeneficiaryName: profile.Name,
		Department:      profile.Department,
		Category:        input.Category,
		Objective:       input.Objective,
		Destination:     input.Destination,
		Region:          input.Region,
		International:   input.International,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		DepartureTime:   input.DepartureTime,
		ReturnTime:      input.ReturnTime,
		TransportItems:  input.TransportItems,
		State:           workflow.StateBorrador,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := mission.ValidateDraft(); err != nil {
		return nil, err
	}

	breakdown, err := s.compute(ctx, mission)
	if err != nil {
		return nil, err
	}
	s.applyBreakdown(mission, breakdown)

	number, err := s.missionRepo.NextRequestNumber(ctx, mission.Type, mission.StartDate.Year())
	if err != nil {
		return nil, fmt.Errorf("allocating request number: %w", err)
	}
	mission.RequestNumber = number

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missionRepo.Create(txCtx, mission); err != nil {
			return fmt.Errorf("create mission: %w", err)
		}
		if err := s.missionRepo.ReplaceLineItems(txCtx, mission.ID, mission.PerDiemItems, mission.TransportItems); err != nil {
			return fmt.Errorf("store line items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create mission", "error", err, "beneficiary_id", input.BeneficiaryID)
		return nil, err
	}

	s.logger.Info("Mission created",
		"id", mission.ID,
		"request_number", mission.RequestNumber,
		"type", string(mission.Type),
		"computed_amount", mission.ComputedAmount.StringFixed(2))
	return mission, nil
}

// UpdateDraft replaces the editable fields of a mission still in an editable
// state and recomputes its amount
func (s *missionServiceImpl) UpdateDraft(ctx context.Context, id int64, input MissionInput) (*entity.Mission, error) {
	mission, err := s.missionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mission.CanEdit() {
		return nil, workflow.NewError(workflow.KindInvalidTransition,
			"mission %d in state %s is not editable", id, mission.State)
	}

	mission.Category = input.Category
	mission.Objective = input.Objective
	mission.Destination = input.Destination
	mission.Region = input.Region
	mission.International = input.International
	mission.StartDate = input.StartDate
	mission.EndDate = input.EndDate
	mission.DepartureTime = input.DepartureTime
	mission.ReturnTime = input.ReturnTime
	mission.TransportItems = input.TransportItems
	mission.UpdatedAt = time.Now()

	if err := mission.ValidateDraft(); err != nil {
		return nil, err
	}

	breakdown, err := s.compute(ctx, mission)
	if err != nil {
		return nil, err
	}
	s.applyBreakdown(mission, breakdown)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missionRepo.Update(txCtx, mission); err != nil {
			return fmt.Errorf("update mission: %w", err)
		}
		if err := s.missionRepo.ReplaceLineItems(txCtx, mission.ID, mission.PerDiemItems, mission.TransportItems); err != nil {
			return fmt.Errorf("store line items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update mission", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Mission updated", "id", id, "computed_amount", mission.ComputedAmount.StringFixed(2))
	return mission, nil
}

// Recompute reruns the amount calculation. Recomputing an unchanged mission
// yields the identical breakdown; a mission past the editable states keeps
// its stored amount and only the breakdown is returned.
func (s *missionServiceImpl) Recompute(ctx context.Context, id int64) (*rates.Breakdown, error) {
	mission, err := s.missionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.compute(ctx, mission)
	if err != nil {
		return nil, err
	}

	if !mission.CanEdit() {
		return breakdown, nil
	}

	s.applyBreakdown(mission, breakdown)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missionRepo.Update(txCtx, mission); err != nil {
			return fmt.Errorf("update mission: %w", err)
		}
		return s.missionRepo.ReplaceLineItems(txCtx, mission.ID, mission.PerDiemItems, mission.TransportItems)
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

func (s *missionServiceImpl) compute(ctx context.Context, mission *entity.Mission) (*rates.Breakdown, error) {
	snap, err := s.rates.RatesEffectiveOn(ctx, mission.StartDate)
	if err != nil {
		return nil, fmt.Errorf("resolving rate catalog: %w", err)
	}
	return rates.Compute(mission, snap)
}

func (s *missionServiceImpl) applyBreakdown(mission *entity.Mission, b *rates.Breakdown) {
	mission.PerDiemItems = b.PerDiemItems
	mission.TransportItems = b.TransportItems
	mission.ComputedAmount = b.ComputedAmount
}

// GetMission retrieves a mission by ID
func (s *missionServiceImpl) GetMission(ctx context.Context, id int64) (*entity.Mission, error) {
	return s.missionRepo.GetByID(ctx, id)
}

// GetByRequestNumber retrieves a mission by its request number
func (s *missionServiceImpl) GetByRequestNumber(ctx context.Context, number string) (*entity.Mission, error) {
	return s.missionRepo.GetByRequestNumber(ctx, number)
}

// ListMissions lists missions matching the filter
func (s *missionServiceImpl) ListMissions(ctx context.Context, filter port.MissionFilter) ([]*entity.Mission, error) {
	return s.missionRepo.List(ctx, filter)
}
