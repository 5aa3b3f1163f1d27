package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// PoolHandler exposes workshift pool endpoints.
type PoolHandler struct {
	pools *service.PoolService
}

// NewPoolHandler constructs PoolHandler.
func NewPoolHandler(pools *service.PoolService) *PoolHandler {
	return &PoolHandler{pools: pools}
}

// List godoc
// @Summary List pools of a semester
// @Tags Pools
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /pools [get]
func (h *PoolHandler) List(c *gin.Context) {
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId required"))
		return
	}
	pools, err := h.pools.List(c.Request.Context(), semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pools, nil)
}

// Get godoc
// @Summary Get pool detail
// @Tags Pools
// @Produce json
// @Param id path string true "Pool ID"
// @Success 200 {object} response.Envelope
// @Router /pools/{id} [get]
func (h *PoolHandler) Get(c *gin.Context) {
	pool, err := h.pools.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pool, nil)
}

// Managers godoc
// @Summary List manager member IDs of a pool
// @Tags Pools
// @Produce json
// @Param id path string true "Pool ID"
// @Success 200 {object} response.Envelope
// @Router /pools/{id}/managers [get]
func (h *PoolHandler) Managers(c *gin.Context) {
	managers, err := h.pools.Managers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, managers, nil)
}

// Create godoc
// @Summary Create a workshift pool
// @Tags Pools
// @Accept json
// @Produce json
// @Param payload body service.CreatePoolRequest true "Pool payload"
// @Success 201 {object} response.Envelope
// @Router /pools [post]
func (h *PoolHandler) Create(c *gin.Context) {
	var req service.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pool, err := h.pools.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pool)
}

// Update godoc
// @Summary Update a workshift pool
// @Tags Pools
// @Accept json
// @Produce json
// @Param id path string true "Pool ID"
// @Param payload body service.UpdatePoolRequest true "Pool payload"
// @Success 200 {object} response.Envelope
// @Router /pools/{id} [put]
func (h *PoolHandler) Update(c *gin.Context) {
	var req service.UpdatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pool, err := h.pools.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pool, nil)
}

// Delete godoc
// @Summary Delete a non-primary pool
// @Tags Pools
// @Param id path string true "Pool ID"
// @Success 204
// @Router /pools/{id} [delete]
func (h *PoolHandler) Delete(c *gin.Context) {
	if err := h.pools.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
