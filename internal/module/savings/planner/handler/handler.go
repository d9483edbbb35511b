// Package handler exposes the fixed-budget planner over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	goalservice "savingsplanner/internal/module/savings/goal/service"
	"savingsplanner/internal/module/savings/planner/dto"
	"savingsplanner/internal/module/savings/planner/service"
	"savingsplanner/internal/savingserr"
)

// ContextFactory builds the per-request CoreContext (settings snapshot plus
// provider handles) for a user. The fx wiring layer provides it; handlers
// never reach for process-wide state.
type ContextFactory interface {
	For(ctx context.Context, userID uuid.UUID) (core.CoreContext, error)
}

// Handler adapts the planner Service to gin routes.
type Handler struct {
	planner service.Service
	goals   goalservice.Service
	factory ContextFactory
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(planner service.Service, goals goalservice.Service, factory ContextFactory, logger *zap.Logger) *Handler {
	return &Handler{planner: planner, goals: goals, factory: factory, logger: logger}
}

// RegisterRoutes registers planner routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	planner := router.Group("/api/v1/planner")
	{
		planner.GET("/minimum-budget", h.MinimumBudget)
		planner.POST("/feasibility", h.CheckFeasibility)
		planner.POST("/schedule", h.GenerateSchedule)
		planner.POST("/schedule/timeline", h.Timeline)
		planner.POST("/schedule/recalculate", h.Recalculate)
	}
}

func respondErr(c *gin.Context, err error) {
	appErr := savingserr.ToAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "message": appErr.Message, "details": appErr.Details})
}

// setup resolves the caller, their core context, and their active goals.
func (h *Handler) setup(c *gin.Context) (core.CoreContext, []goaldomain.Goal, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("header", "X-User-ID"))
		return core.CoreContext{}, nil, false
	}
	cc, err := h.factory.For(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return core.CoreContext{}, nil, false
	}
	goals, err := h.goals.List(c.Request.Context(), userID, false)
	if err != nil {
		respondErr(c, err)
		return core.CoreContext{}, nil, false
	}
	return cc, goals, true
}

// MinimumBudget godoc
// @Summary Smallest monthly budget meeting every goal deadline
// @Tags planner
// @Produce json
// @Param currency query string false "Target currency (defaults to display currency)"
// @Success 200 {object} dto.MinimumBudgetResponse
// @Router /api/v1/planner/minimum-budget [get]
func (h *Handler) MinimumBudget(c *gin.Context) {
	cc, goals, ok := h.setup(c)
	if !ok {
		return
	}
	currency := c.Query("currency")
	if currency == "" {
		currency = cc.Settings.DisplayCurrency
	}
	minimum, err := h.planner.MinimumBudget(c.Request.Context(), cc, goals, currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MinimumBudgetResponse{MinimumBudget: minimum, Currency: currency})
}

// CheckFeasibility godoc
// @Summary Check a proposed monthly budget against all goal deadlines
// @Tags planner
// @Accept json
// @Produce json
// @Param request body dto.FeasibilityRequest true "Budget to check"
// @Success 200 {object} domain.FeasibilityResult
// @Router /api/v1/planner/feasibility [post]
func (h *Handler) CheckFeasibility(c *gin.Context) {
	cc, goals, ok := h.setup(c)
	if !ok {
		return
	}
	var req dto.FeasibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	result, err := h.planner.CheckFeasibility(c.Request.Context(), cc, goals, req.Budget, req.Currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GenerateSchedule godoc
// @Summary Generate the payment-by-payment schedule at a monthly budget
// @Tags planner
// @Accept json
// @Produce json
// @Param request body dto.ScheduleRequest true "Budget and currency"
// @Success 200 {object} domain.FixedBudgetPlan
// @Router /api/v1/planner/schedule [post]
func (h *Handler) GenerateSchedule(c *gin.Context) {
	cc, goals, ok := h.setup(c)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	plan, err := h.planner.GenerateSchedule(c.Request.Context(), cc, goals, req.Budget, req.Currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Timeline godoc
// @Summary Aggregate a schedule into per-goal timeline blocks
// @Tags planner
// @Accept json
// @Produce json
// @Param request body dto.ScheduleRequest true "Budget and currency"
// @Success 200 {object} dto.TimelineResponse
// @Router /api/v1/planner/schedule/timeline [post]
func (h *Handler) Timeline(c *gin.Context) {
	cc, goals, ok := h.setup(c)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	plan, err := h.planner.GenerateSchedule(c.Request.Context(), cc, goals, req.Budget, req.Currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TimelineResponse{Blocks: h.planner.BuildTimelineBlocks(plan)})
}

// Recalculate godoc
// @Summary Rebuild the schedule after an actual contribution diverged from plan
// @Tags planner
// @Accept json
// @Produce json
// @Param request body dto.RecalculateRequest true "Actual contribution and policy"
// @Success 200 {object} domain.FixedBudgetPlan
// @Router /api/v1/planner/schedule/recalculate [post]
func (h *Handler) Recalculate(c *gin.Context) {
	cc, goals, ok := h.setup(c)
	if !ok {
		return
	}
	var req dto.RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	plan, err := h.planner.GenerateSchedule(c.Request.Context(), cc, goals, req.Budget, req.Currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	recalced, err := h.planner.RecalculateAfterContribution(c.Request.Context(), cc, plan, req.Actual, req.PaymentNumber, goals, req.Policy)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, recalced)
}
