// Package handler exposes the monthly plan store over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savingsplanner/internal/module/savings/monthlyplan/dto"
	"savingsplanner/internal/module/savings/monthlyplan/service"
	"savingsplanner/internal/savingserr"
)

// Handler adapts the monthly plan Service to gin routes.
type Handler struct {
	service service.Service
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service service.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers monthly plan routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	plans := router.Group("/api/v1/monthly-plans")
	{
		plans.GET("/:month", h.ListMonth)
		plans.GET("/:month/:goalId", h.Get)
		plans.PATCH("/:month/:goalId", h.Override)
	}
}

func respondErr(c *gin.Context, err error) {
	appErr := savingserr.ToAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "message": appErr.Message, "details": appErr.Details})
}

// ListMonth godoc
// @Summary List a month's per-goal plan rows
// @Tags monthly-plans
// @Produce json
// @Param month path string true "Month label YYYY-MM"
// @Success 200 {array} domain.MonthlyGoalPlan
// @Router /api/v1/monthly-plans/{month} [get]
func (h *Handler) ListMonth(c *gin.Context) {
	rows, err := h.service.ListByMonth(c.Request.Context(), c.Param("month"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Get godoc
// @Summary Get one goal's plan row for a month
// @Tags monthly-plans
// @Produce json
// @Param month path string true "Month label YYYY-MM"
// @Param goalId path string true "Goal ID"
// @Success 200 {object} domain.MonthlyGoalPlan
// @Router /api/v1/monthly-plans/{month}/{goalId} [get]
func (h *Handler) Get(c *gin.Context) {
	goalID, err := uuid.Parse(c.Param("goalId"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "goalId"))
		return
	}
	row, err := h.service.Get(c.Request.Context(), c.Param("month"), goalID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Override godoc
// @Summary Patch a plan row's protect/skip/custom-amount overrides
// @Tags monthly-plans
// @Accept json
// @Produce json
// @Param month path string true "Month label YYYY-MM"
// @Param goalId path string true "Goal ID"
// @Param request body dto.OverrideRequest true "Override patch"
// @Success 200 {object} domain.MonthlyGoalPlan
// @Router /api/v1/monthly-plans/{month}/{goalId} [patch]
func (h *Handler) Override(c *gin.Context) {
	goalID, err := uuid.Parse(c.Param("goalId"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "goalId"))
		return
	}
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	row, err := h.service.Apply(c.Request.Context(), c.Param("month"), goalID, service.Override{
		CustomAmount: req.CustomAmount,
		IsProtected:  req.IsProtected,
		IsSkipped:    req.IsSkipped,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
