package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	domainwf "github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	missionRepo port.MissionRepository
	historyRepo port.HistoryRepository
	rates       port.RateProvider
	budget      port.BudgetCatalog
	txManager   port.TransactionManager
	logger      *zap.Logger

	// Serialize transitions per mission. The optimistic state check in
	// the repository remains the backstop for competing processes.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates a new workflow engine
func NewEngine(
	missionRepo port.MissionRepository,
	historyRepo port.HistoryRepository,
	rates port.RateProvider,
	budget port.BudgetCatalog,
	txManager port.TransactionManager,
	logger *zap.Logger,
) Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &engineImpl{
		missionRepo: missionRepo,
		historyRepo: historyRepo,
		rates:       rates,
		budget:      budget,
		txManager:   txManager,
		logger:      logger,
		locks:       make(map[int64]*sync.Mutex),
	}
}

func (e *engineImpl) lockFor(missionID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[missionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[missionID] = l
	}
	return l
}

// Apply executes one action against a mission on behalf of an actor
func (e *engineImpl) Apply(ctx context.Context, cmd Command) (*Result, error) {
	if !cmd.Action.IsValid() {
		return nil, domainwf.NewError(domainwf.KindValidationFailed, "unknown action %q", string(cmd.Action))
	}
	if !cmd.ActorRole.IsValid() {
		return nil, domainwf.NewError(domainwf.KindValidationFailed, "unknown role %q", string(cmd.ActorRole))
	}
	if cmd.ActorID == "" {
		return nil, domainwf.NewError(domainwf.KindValidationFailed, "actor id is required")
	}
	if cmd.Action.RequiresComment() && cmd.Comment == "" {
		return nil, domainwf.NewError(domainwf.KindValidationFailed,
			"action %s requires a comment", cmd.Action)
	}

	lock := e.lockFor(cmd.MissionID)
	lock.Lock()
	defer lock.Unlock()

	mission, err := e.missionRepo.GetByID(ctx, cmd.MissionID)
	if err != nil {
		return nil, err
	}

	snap, err := e.rates.RatesEffectiveOn(ctx, mission.StartDate)
	if err != nil {
		return nil, fmt.Errorf("resolving rate catalog: %w", err)
	}

	approved := mission.EffectiveApprovedAmount()
	if cmd.ApprovedAmount != nil {
		if cmd.ApprovedAmount.IsNegative() || cmd.ApprovedAmount.IsZero() {
			return nil, domainwf.NewError(domainwf.KindValidationFailed,
				"approved amount must be positive, got %s", cmd.ApprovedAmount.StringFixed(2))
		}
		approved = *cmd.ApprovedAmount
	}

	electronic := mission.PaymentMethod.RequiresElectronicSignature()
	if cmd.Action == domainwf.ActionProcesarPago {
		if !cmd.PaymentMethod.IsValid() {
			return nil, domainwf.NewError(domainwf.KindValidationFailed,
				"payment method %q is not valid", string(cmd.PaymentMethod))
		}
		if cmd.PaymentMethod == entity.PaymentEfectivo &&
			mission.EffectiveApprovedAmount().GreaterThan(snap.CashLimit) {
			return nil, domainwf.NewError(domainwf.KindValidationFailed,
				"amount %s exceeds the cash payment limit of %s",
				mission.EffectiveApprovedAmount().StringFixed(2), snap.CashLimit.StringFixed(2))
		}
		electronic = cmd.PaymentMethod.RequiresElectronicSignature()
	}

	tc := domainwf.TransitionContext{
		PettyCash:         mission.Type == entity.TypeCajaMenuda,
		ApprovedAmount:    approved,
		RefrendoThreshold: snap.RefrendoThreshold,
		ElectronicPayment: electronic,
	}

	machine := BuildMissionStateMachine(mission.State)
	previousState := machine.State()
	newState, err := machine.Resolve(cmd.Action, cmd.ActorRole, tc)
	if err != nil {
		return nil, err
	}

	var (
		allocateCollection bool
		assignments        []entity.BudgetAssignment
	)

	switch cmd.Action {
	case domainwf.ActionEnviar:
		// Submitting an unfinished or inconsistent draft is rejected
		// before any mutation.
		if err := mission.ValidateDraft(); err != nil {
			return nil, err
		}

	case domainwf.ActionAprobar, domainwf.ActionAprobarDirecto:
		if previousState == domainwf.StatePendienteFinanzas ||
			cmd.Action == domainwf.ActionAprobarDirecto ||
			newState == domainwf.StateAprobadoParaPago && mission.ApprovedAmount == nil {
			if err := mission.SetApprovedAmount(approved); err != nil {
				return nil, err
			}
		}
		if previousState == domainwf.StatePendienteFinanzas {
			if err := mission.SetRequiresRefrendo(newState == domainwf.StatePendienteRefrendoCGR); err != nil {
				return nil, err
			}
		}
		// The GC number is allocated inside the transaction below; a
		// rolled-back transition must not consume a sequence value.
		allocateCollection = previousState == domainwf.StatePendienteTesoreria &&
			mission.Type == entity.TypeViaticos
		if previousState == domainwf.StatePendientePresupuesto {
			if len(cmd.BudgetAssignments) == 0 {
				return nil, domainwf.NewError(domainwf.KindValidationFailed,
					"budget approval requires at least one partida")
			}
			for _, a := range cmd.BudgetAssignments {
				known, err := e.budget.BudgetCodeExists(ctx, a.Code)
				if err != nil {
					return nil, fmt.Errorf("checking budget code %s: %w", a.Code, err)
				}
				if !known {
					return nil, domainwf.NewError(domainwf.KindValidationFailed,
						"budget code %s does not exist in the institutional catalog", a.Code)
				}
			}
			if err := mission.ReplaceBudgetAssignments(cmd.BudgetAssignments); err != nil {
				return nil, err
			}
			assignments = cmd.BudgetAssignments
		}

	case domainwf.ActionDevolver:
		// A returned request renegotiates its amount from scratch.
		mission.ClearApprovedAmount()

	case domainwf.ActionGenerarOrden:
		if mission.Type == entity.TypeViaticos {
			if err := mission.SetChequeConfeccionado(); err != nil {
				return nil, err
			}
		}

	case domainwf.ActionProcesarPago:
		mission.PaymentMethod = cmd.PaymentMethod
		if newState == domainwf.StatePagado {
			e.markPaid(mission, snap.PresentationDays)
		}

	case domainwf.ActionConfirmarPago:
		if cmd.Signature == nil {
			return nil, domainwf.NewError(domainwf.KindValidationFailed,
				"payment confirmation requires an electronic signature")
		}
		e.markPaid(mission, snap.PresentationDays)
	}

	record := &entity.TransitionRecord{
		MissionID:     mission.ID,
		ActorID:       cmd.ActorID,
		ActorRole:     cmd.ActorRole,
		PreviousState: previousState,
		NewState:      newState,
		Action:        cmd.Action,
		Comment:       cmd.Comment,
		ClientIP:      cmd.ClientIP,
		Timestamp:     time.Now(),
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.missionRepo.UpdateState(txCtx, mission.ID, previousState, newState); err != nil {
			return err
		}
		mission.State = newState
		if err := e.missionRepo.Update(txCtx, mission); err != nil {
			return fmt.Errorf("updating mission: %w", err)
		}
		if assignments != nil {
			if err := e.missionRepo.ReplaceBudgetAssignments(txCtx, mission.ID, assignments); err != nil {
				return fmt.Errorf("storing budget assignments: %w", err)
			}
		}
		if allocateCollection {
			number, err := e.missionRepo.NextCollectionNumber(txCtx, time.Now().Year())
			if err != nil {
				return fmt.Errorf("allocating collection number: %w", err)
			}
			collection := entity.CollectionAction{
				MissionID:        mission.ID,
				Number:           number,
				GeneratedAt:      time.Now(),
				GeneratedBy:      cmd.ActorID,
				AuthorizedAmount: mission.EffectiveApprovedAmount(),
				Status:           entity.CollectionPendiente,
			}
			if err := mission.AddCollectionAction(collection); err != nil {
				return err
			}
			if err := e.missionRepo.AddCollectionAction(txCtx, &collection); err != nil {
				return fmt.Errorf("storing collection action: %w", err)
			}
		}
		if err := e.historyRepo.Append(txCtx, record); err != nil {
			return fmt.Errorf("appending history: %w", err)
		}
		if cmd.Action == domainwf.ActionConfirmarPago {
			sig := *cmd.Signature
			sig.MissionID = mission.ID
			sig.TransitionID = record.ID
			if sig.SignedAt.IsZero() {
				sig.SignedAt = time.Now()
			}
			if err := e.missionRepo.AddSignature(txCtx, &sig); err != nil {
				return fmt.Errorf("storing signature: %w", err)
			}
			if err := mission.AttachSignature(sig); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("workflow transition applied",
		zap.Int64("mission_id", mission.ID),
		zap.String("action", cmd.Action.String()),
		zap.String("actor", cmd.ActorID),
		zap.String("role", cmd.ActorRole.String()),
		zap.String("from", previousState.String()),
		zap.String("to", newState.String()))

	return &Result{
		PreviousState:    previousState,
		NewState:         newState,
		RecordID:         record.ID,
		RequiresRefrendo: mission.RequiresRefrendo,
	}, nil
}

// markPaid stamps the payment moment and the support-presentation deadline
func (e *engineImpl) markPaid(m *entity.Mission, presentationDays int) {
	now := time.Now()
	m.PaidAt = &now

	base := m.EndDate
	if m.ReturnTime != nil {
		base = *m.ReturnTime
	}
	deadline := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, base.Location()).
		AddDate(0, 0, presentationDays)
	m.PresentationDeadline = &deadline

	if m.ChequeConfeccionado && !m.ChequeFirmado {
		// Ignoring the error: firmado after confeccionado cannot fail.
		_ = m.SetChequeFirmado()
	}
}

// CurrentState returns the mission's current workflow state
func (e *engineImpl) CurrentState(ctx context.Context, missionID int64) (domainwf.State, error) {
	mission, err := e.missionRepo.GetByID(ctx, missionID)
	if err != nil {
		return "", err
	}
	return mission.State, nil
}

// PermittedActions lists actions the role may attempt from the mission's
// current state, before guard evaluation
func (e *engineImpl) PermittedActions(ctx context.Context, missionID int64, role domainwf.Role) ([]domainwf.Action, error) {
	if !role.IsValid() {
		return nil, domainwf.NewError(domainwf.KindValidationFailed, "unknown role %q", string(role))
	}
	mission, err := e.missionRepo.GetByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	return BuildMissionStateMachine(mission.State).PermittedActions(role), nil
}

// History returns the mission's audit trail in insertion order
func (e *engineImpl) History(ctx context.Context, missionID int64) ([]*entity.TransitionRecord, error) {
	if _, err := e.missionRepo.GetByID(ctx, missionID); err != nil {
		return nil, err
	}
	return e.historyRepo.ListByMission(ctx, missionID)
}
