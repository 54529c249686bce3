package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aitsa/viaticos-engine/internal/application/port"
	"github.com/aitsa/viaticos-engine/internal/application/service"
	appwf "github.com/aitsa/viaticos-engine/internal/application/workflow"
	"github.com/aitsa/viaticos-engine/internal/domain/entity"
	"github.com/aitsa/viaticos-engine/internal/domain/workflow"
	"github.com/aitsa/viaticos-engine/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	missionService service.MissionService
	reportService  service.ReportService
	engine         appwf.Engine
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	missionService service.MissionService,
	reportService service.ReportService,
	engine appwf.Engine,
	logger Logger,
) *Handlers {
	return &Handlers{
		missionService: missionService,
		reportService:  reportService,
		engine:         engine,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// MissionRequest is the payload for creating or updating a mission
type MissionRequest struct {
	Type          string                 `json:"type" binding:"required"`
	BeneficiaryID string                 `json:"beneficiary_id" binding:"required"`
	Category      string                 `json:"category" binding:"required"`
	Objective     string                 `json:"objective"`
	Destination   string                 `json:"destination" binding:"required"`
	Region        string                 `json:"region"`
	International bool                   `json:"international"`
	StartDate     string                 `json:"start_date" binding:"required"`
	EndDate       string                 `json:"end_date" binding:"required"`
	DepartureTime *string                `json:"departure_time"`
	ReturnTime    *string                `json:"return_time"`
	Transport     []TransportItemRequest `json:"transport"`
}

// TransportItemRequest is one transport segment in a mission payload
type TransportItemRequest struct {
	Date        string `json:"date" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DistanceKM  string `json:"distance_km"`
	Amount      string `json:"amount"`
}

// TransitionRequest is the payload for applying a workflow action
type TransitionRequest struct {
	Action         string                    `json:"action" binding:"required"`
	ActorID        string                    `json:"actor_id" binding:"required"`
	ActorRole      string                    `json:"actor_role" binding:"required"`
	Comment        string                    `json:"comment"`
	ApprovedAmount *string                   `json:"approved_amount"`
	PaymentMethod  string                    `json:"payment_method"`
	Assignments    []BudgetAssignmentRequest `json:"budget_assignments"`
	Signature      *SignatureRequest         `json:"signature"`
}

// BudgetAssignmentRequest is one partida in a budget approval payload
type BudgetAssignmentRequest struct {
	Code        string `json:"code" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// SignatureRequest carries a signature assertion for payment confirmation
type SignatureRequest struct {
	SignerID  string `json:"signer_id" binding:"required"`
	Assertion string `json:"assertion" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateMission handles POST /api/missions
func (h *Handlers) CreateMission(c *gin.Context) {
	input, ok := h.bindMissionInput(c)
	if !ok {
		return
	}

	mission, err := h.missionService.CreateMission(c.Request.Context(), *input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: mission})
}

// UpdateMission handles PUT /api/missions/:id
func (h *Handlers) UpdateMission(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}
	input, ok := h.bindMissionInput(c)
	if !ok {
		return
	}

	mission, err := h.missionService.UpdateDraft(c.Request.Context(), id, *input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: mission})
}

// GetMission handles GET /api/missions/:id
func (h *Handlers) GetMission(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	mission, err := h.missionService.GetMission(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: mission})
}

// ListMissions handles GET /api/missions
func (h *Handlers) ListMissions(c *gin.Context) {
	filter := port.MissionFilter{
		Search: c.Query("search"),
	}
	if t := c.Query("type"); t != "" {
		filter.Type = entity.MissionType(t)
	}
	if s := c.Query("state"); s != "" {
		filter.States = []workflow.State{workflow.State(s)}
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	missions, err := h.missionService.ListMissions(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: missions})
}

// RecomputeMission handles POST /api/missions/:id/recompute
func (h *Handlers) RecomputeMission(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	breakdown, err := h.missionService.Recompute(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: breakdown})
}

// ApplyTransition handles POST /api/missions/:id/transitions
func (h *Handlers) ApplyTransition(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	cmd := appwf.Command{
		MissionID:     id,
		Action:        workflow.Action(req.Action),
		ActorID:       req.ActorID,
		ActorRole:     workflow.Role(req.ActorRole),
		Comment:       utils.SanitizeString(req.Comment),
		ClientIP:      c.ClientIP(),
		PaymentMethod: entity.PaymentMethod(req.PaymentMethod),
	}

	if req.ApprovedAmount != nil {
		amount, err := decimal.NewFromString(*req.ApprovedAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid approved_amount"})
			return
		}
		cmd.ApprovedAmount = &amount
	}

	for _, a := range req.Assignments {
		if err := utils.ValidatePartidaCode(a.Code); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid assignment amount"})
			return
		}
		cmd.BudgetAssignments = append(cmd.BudgetAssignments, entity.BudgetAssignment{
			Code:        a.Code,
			Amount:      amount,
			Description: utils.SanitizeString(a.Description),
		})
	}

	if req.Signature != nil {
		cmd.Signature = &entity.ElectronicSignature{
			SignerID:  req.Signature.SignerID,
			Assertion: req.Signature.Assertion,
		}
	}

	result, err := h.engine.Apply(c.Request.Context(), cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetState handles GET /api/missions/:id/state
func (h *Handlers) GetState(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	state, err := h.engine.CurrentState(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"state":    state,
		"terminal": state.IsTerminal(),
		"editable": state.IsEditable(),
	}})
}

// GetHistory handles GET /api/missions/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	records, err := h.engine.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetPermittedActions handles GET /api/missions/:id/actions
func (h *Handlers) GetPermittedActions(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	role := workflow.Role(c.Query("role"))
	actions, err := h.engine.PermittedActions(c.Request.Context(), id, role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: actions})
}

// PaidMissionsReport handles GET /api/reports/pagos
func (h *Handlers) PaidMissionsReport(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", "0001-01-01"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", "9999-12-31"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid to date"})
		return
	}
	// Include the whole final day.
	to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	c.Header("Content-Disposition", `attachment; filename="reporte_pagos.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if _, err := h.reportService.WritePaidMissionsReport(c.Request.Context(), c.Writer, from, to); err != nil {
		h.logger.Error("Failed to generate report", "error", err)
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handlers) missionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid mission id"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) bindMissionInput(c *gin.Context) (*service.MissionInput, bool) {
	var req MissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return nil, false
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid start_date"})
		return nil, false
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid end_date"})
		return nil, false
	}

	// Position numbers are plain digits; anything dashed must be a
	// well-formed cédula.
	if strings.Contains(req.BeneficiaryID, "-") {
		if err := utils.ValidateCedula(req.BeneficiaryID); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return nil, false
		}
	}

	input := &service.MissionInput{
		Type:          entity.MissionType(req.Type),
		BeneficiaryID: req.BeneficiaryID,
		Category:      entity.BeneficiaryCategory(req.Category),
		Objective:     utils.SanitizeString(req.Objective),
		Destination:   utils.SanitizeString(req.Destination),
		Region:        req.Region,
		International: req.International,
		StartDate:     startDate,
		EndDate:       endDate,
	}

	if req.DepartureTime != nil {
		t, err := time.Parse(time.RFC3339, *req.DepartureTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid departure_time"})
			return nil, false
		}
		input.DepartureTime = &t
	}
	if req.ReturnTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ReturnTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid return_time"})
			return nil, false
		}
		input.ReturnTime = &t
	}

	for _, seg := range req.Transport {
		date, err := time.Parse("2006-01-02", seg.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid transport date"})
			return nil, false
		}
		item := entity.TransportItem{
			Date:        date,
			Type:        entity.TransportType(seg.Type),
			Origin:      seg.Origin,
			Destination: seg.Destination,
		}
		if seg.DistanceKM != "" {
			if item.DistanceKM, err = decimal.NewFromString(seg.DistanceKM); err != nil {
				c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid distance_km"})
				return nil, false
			}
		}
		if seg.Amount != "" {
			if item.Amount, err = decimal.NewFromString(seg.Amount); err != nil {
				c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid transport amount"})
				return nil, false
			}
		}
		input.TransportItems = append(input.TransportItems, item)
	}

	return input, true
}

// respondError maps workflow error kinds onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	kind := workflow.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case workflow.KindValidationFailed:
		status = http.StatusBadRequest
	case workflow.KindUnauthorized:
		status = http.StatusForbidden
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindInvalidTransition, workflow.KindConcurrencyConflict:
		status = http.StatusConflict
	case workflow.KindCalculationError:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error(), Kind: string(kind)})
}
