package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// AssignmentHandler exposes the bulk assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// AutoAssignRequest selects the pool to run preference-driven
// assignment over.
type AutoAssignRequest struct {
	SemesterID string `json:"semester_id" binding:"required"`
	PoolID     string `json:"pool_id" binding:"required"`
}

// PoolRequest names a pool for clear and random-fill runs.
type PoolRequest struct {
	PoolID string `json:"pool_id" binding:"required"`
}

// AutoAssign godoc
// @Summary Assign profiles to auto shifts by preference
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body handler.AutoAssignRequest true "Target pool"
// @Success 200 {object} response.Envelope
// @Router /assignments/auto [post]
func (h *AssignmentHandler) AutoAssign(c *gin.Context) {
	var req AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.AutoAssign(c.Request.Context(), req.SemesterID, req.PoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Clear godoc
// @Summary Remove all assignees from auto shifts in a pool
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body handler.PoolRequest true "Target pool"
// @Success 204
// @Router /assignments/clear [post]
func (h *AssignmentHandler) Clear(c *gin.Context) {
	var req PoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.ClearAssignments(c.Request.Context(), req.PoolID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RandomFill godoc
// @Summary Fill open unstaffed instances with needy profiles
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body handler.PoolRequest true "Target pool"
// @Success 200 {object} response.Envelope
// @Router /assignments/random [post]
func (h *AssignmentHandler) RandomFill(c *gin.Context) {
	var req PoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.RandomAssignInstances(c.Request.Context(), req.PoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
