// Package handler exposes the execution tracker over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/execution/dto"
	"savingsplanner/internal/module/savings/execution/service"
	goalservice "savingsplanner/internal/module/savings/goal/service"
	"savingsplanner/internal/savingserr"
)

// ContextFactory builds the per-request CoreContext for a user.
type ContextFactory interface {
	For(ctx context.Context, userID uuid.UUID) (core.CoreContext, error)
}

// Handler adapts the execution Service to gin routes.
type Handler struct {
	service service.Service
	goals   goalservice.Service
	factory ContextFactory
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service service.Service, goals goalservice.Service, factory ContextFactory, logger *zap.Logger) *Handler {
	return &Handler{service: service, goals: goals, factory: factory, logger: logger}
}

// RegisterRoutes registers execution routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	executions := router.Group("/api/v1/executions")
	{
		executions.POST("", h.Start)
		executions.GET("/:id", h.Get)
		executions.GET("/:id/snapshots", h.Snapshots)
		executions.POST("/:id/contributions", h.LogContribution)
		executions.GET("/:id/remaining/:goalId", h.Remaining)
		executions.POST("/:id/close", h.Close)
		executions.POST("/:id/reopen", h.Reopen)
	}
}

func respondErr(c *gin.Context, err error) {
	appErr := savingserr.ToAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "message": appErr.Message, "details": appErr.Details})
}

func (h *Handler) userContext(c *gin.Context) (uuid.UUID, core.CoreContext, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("header", "X-User-ID"))
		return uuid.Nil, core.CoreContext{}, false
	}
	cc, err := h.factory.For(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return uuid.Nil, core.CoreContext{}, false
	}
	return userID, cc, true
}

func recordID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "id"))
		return uuid.Nil, false
	}
	return id, true
}

// Start godoc
// @Summary Start tracking a month's execution
// @Tags executions
// @Accept json
// @Produce json
// @Param request body dto.StartRequest true "Month to start"
// @Success 201 {object} domain.ExecutionRecord
// @Router /api/v1/executions [post]
func (h *Handler) Start(c *gin.Context) {
	userID, cc, ok := h.userContext(c)
	if !ok {
		return
	}
	var req dto.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	goals, err := h.goals.List(c.Request.Context(), userID, false)
	if err != nil {
		respondErr(c, err)
		return
	}
	record, err := h.service.Start(c.Request.Context(), cc, userID, req.MonthLabel, goals)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Get godoc
// @Summary Get an execution record
// @Tags executions
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} domain.ExecutionRecord
// @Router /api/v1/executions/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Snapshots godoc
// @Summary List a record's frozen goal snapshots
// @Tags executions
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {array} domain.ExecutionSnapshot
// @Router /api/v1/executions/{id}/snapshots [get]
func (h *Handler) Snapshots(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	snapshots, err := h.service.Snapshots(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

// LogContribution godoc
// @Summary Log a contribution against an executing record
// @Tags executions
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param request body dto.ContributionRequest true "Contribution"
// @Success 201 {object} domain.CompletedExecution
// @Router /api/v1/executions/{id}/contributions [post]
func (h *Handler) LogContribution(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	var req dto.ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	contribution, err := h.service.LogContribution(c.Request.Context(), id, req.GoalID, req.Amount, req.TransactionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

// Remaining godoc
// @Summary Remaining-to-close prefill for one goal
// @Tags executions
// @Produce json
// @Param id path string true "Record ID"
// @Param goalId path string true "Goal ID"
// @Param currency query string false "Target currency (defaults to execution display currency)"
// @Success 200 {object} dto.RemainingResponse
// @Router /api/v1/executions/{id}/remaining/{goalId} [get]
func (h *Handler) Remaining(c *gin.Context) {
	_, cc, ok := h.userContext(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}
	goalID, err := uuid.Parse(c.Param("goalId"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "goalId"))
		return
	}
	currency := c.Query("currency")
	if currency == "" {
		currency = cc.Settings.ExecutionDisplayCurrency
	}
	amount, err := h.service.RemainingToClose(c.Request.Context(), cc, id, goalID, currency)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RemainingResponse{GoalID: goalID, Currency: currency, Amount: amount})
}

// Close godoc
// @Summary Close an executing record
// @Tags executions
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} domain.CompletedSummary
// @Router /api/v1/executions/{id}/close [post]
func (h *Handler) Close(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	summary, err := h.service.Close(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Reopen godoc
// @Summary Reopen a closed record within the undo window
// @Tags executions
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} domain.ExecutionRecord
// @Router /api/v1/executions/{id}/reopen [post]
func (h *Handler) Reopen(c *gin.Context) {
	_, cc, ok := h.userContext(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}
	record, err := h.service.Reopen(c.Request.Context(), cc, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
