package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// WorkshiftTypeHandler exposes the chore catalog endpoints.
type WorkshiftTypeHandler struct {
	types *service.WorkshiftTypeService
}

// NewWorkshiftTypeHandler constructs WorkshiftTypeHandler.
func NewWorkshiftTypeHandler(types *service.WorkshiftTypeService) *WorkshiftTypeHandler {
	return &WorkshiftTypeHandler{types: types}
}

// List godoc
// @Summary List workshift types
// @Tags WorkshiftTypes
// @Produce json
// @Param rateable query bool false "Filter by rateable flag"
// @Param assignment query string false "Filter by assignment mode"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /workshift-types [get]
func (h *WorkshiftTypeHandler) List(c *gin.Context) {
	var filter models.WorkshiftTypeFilter
	if rateable := c.Query("rateable"); rateable == "true" || rateable == "false" {
		v := rateable == "true"
		filter.Rateable = &v
	}
	filter.Assignment = models.AssignmentMode(c.Query("assignment"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	types, pagination, err := h.types.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, pagination)
}

// Get godoc
// @Summary Get workshift type detail
// @Tags WorkshiftTypes
// @Produce json
// @Param id path string true "Workshift type ID"
// @Success 200 {object} response.Envelope
// @Router /workshift-types/{id} [get]
func (h *WorkshiftTypeHandler) Get(c *gin.Context) {
	wsType, err := h.types.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wsType, nil)
}

// Create godoc
// @Summary Create a workshift type
// @Tags WorkshiftTypes
// @Accept json
// @Produce json
// @Param payload body service.CreateWorkshiftTypeRequest true "Workshift type payload"
// @Success 201 {object} response.Envelope
// @Router /workshift-types [post]
func (h *WorkshiftTypeHandler) Create(c *gin.Context) {
	var req service.CreateWorkshiftTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	wsType, err := h.types.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, wsType)
}

// Update godoc
// @Summary Update a workshift type
// @Tags WorkshiftTypes
// @Accept json
// @Produce json
// @Param id path string true "Workshift type ID"
// @Param payload body service.UpdateWorkshiftTypeRequest true "Workshift type payload"
// @Success 200 {object} response.Envelope
// @Router /workshift-types/{id} [put]
func (h *WorkshiftTypeHandler) Update(c *gin.Context) {
	var req service.UpdateWorkshiftTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	wsType, err := h.types.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wsType, nil)
}

// Delete godoc
// @Summary Delete an unreferenced workshift type
// @Tags WorkshiftTypes
// @Param id path string true "Workshift type ID"
// @Success 204
// @Router /workshift-types/{id} [delete]
func (h *WorkshiftTypeHandler) Delete(c *gin.Context) {
	if err := h.types.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
