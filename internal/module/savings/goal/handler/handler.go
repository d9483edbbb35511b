// Package handler exposes the goal service over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"savingsplanner/internal/module/savings/goal/dto"
	"savingsplanner/internal/module/savings/goal/service"
	"savingsplanner/internal/savingserr"
)

// Handler adapts the goal Service to gin routes.
type Handler struct {
	service service.Service
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service service.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers goal routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	goals := router.Group("/api/v1/goals")
	{
		goals.POST("", h.CreateGoal)
		goals.GET("", h.ListGoals)
		goals.GET("/:id", h.GetGoal)
		goals.PUT("/:id", h.UpdateGoal)
		goals.POST("/:id/transition", h.TransitionGoal)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.GetHeader("X-User-ID"))
}

func respondErr(c *gin.Context, err error) {
	appErr := savingserr.ToAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "message": appErr.Message, "details": appErr.Details})
}

// CreateGoal godoc
// @Summary Create a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param goal body dto.CreateGoalRequest true "Goal details"
// @Success 201 {object} domain.Goal
// @Router /api/v1/goals [post]
func (h *Handler) CreateGoal(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("header", "X-User-ID"))
		return
	}

	var req dto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}

	goal, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// ListGoals godoc
// @Summary List a user's savings goals
// @Tags goals
// @Produce json
// @Success 200 {array} domain.Goal
// @Router /api/v1/goals [get]
func (h *Handler) ListGoals(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("header", "X-User-ID"))
		return
	}

	includeArchived := c.Query("include_archived") == "true"
	goals, err := h.service.List(c.Request.Context(), userID, includeArchived)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

// GetGoal godoc
// @Summary Get a savings goal by id
// @Tags goals
// @Produce json
// @Param id path string true "Goal ID"
// @Success 200 {object} domain.Goal
// @Router /api/v1/goals/{id} [get]
func (h *Handler) GetGoal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "id"))
		return
	}
	goal, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// UpdateGoal godoc
// @Summary Update a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param goal body dto.UpdateGoalRequest true "Goal patch"
// @Success 200 {object} domain.Goal
// @Router /api/v1/goals/{id} [put]
func (h *Handler) UpdateGoal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "id"))
		return
	}
	var req dto.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	goal, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// TransitionGoal godoc
// @Summary Transition a goal's lifecycle
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param transition body dto.TransitionRequest true "Target lifecycle"
// @Success 200 {object} domain.Goal
// @Router /api/v1/goals/{id}/transition [post]
func (h *Handler) TransitionGoal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, savingserr.ErrValidation.WithDetails("param", "id"))
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, savingserr.ErrValidation.WithError(err))
		return
	}
	goal, err := h.service.Transition(c.Request.Context(), id, req.Lifecycle)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}
