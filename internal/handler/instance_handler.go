package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// InstanceHandler exposes workshift instance endpoints, including the
// sign-in/sign-out/verify state machine.
type InstanceHandler struct {
	instances *service.InstanceService
	profiles  *service.ProfileService
}

// NewInstanceHandler constructs InstanceHandler.
func NewInstanceHandler(instances *service.InstanceService, profiles *service.ProfileService) *InstanceHandler {
	return &InstanceHandler{instances: instances, profiles: profiles}
}

// SellRequest carries the optional note shown alongside a sell log
// entry.
type SellRequest struct {
	Note string `json:"note"`
}

// EditHoursRequest carries a manager's hour override.
type EditHoursRequest struct {
	Hours float64 `json:"hours"`
	Note  string  `json:"note"`
}

// List godoc
// @Summary List instances
// @Tags Instances
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Param shiftId query string false "Filter by shift"
// @Param poolId query string false "Filter by pool"
// @Param workshifterId query string false "Filter by signed-in profile"
// @Param dateFrom query string false "Earliest date (YYYY-MM-DD)"
// @Param dateTo query string false "Latest date (YYYY-MM-DD)"
// @Param closed query bool false "Filter by closed flag"
// @Param blown query bool false "Filter by blown flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	var filter models.InstanceFilter
	filter.SemesterID = c.Query("semesterId")
	filter.ShiftID = c.Query("shiftId")
	filter.PoolID = c.Query("poolId")
	filter.WorkshifterID = c.Query("workshifterId")
	if from, err := time.Parse("2006-01-02", c.Query("dateFrom")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("dateTo")); err == nil {
		filter.DateTo = &to
	}
	if closed := c.Query("closed"); closed == "true" || closed == "false" {
		v := closed == "true"
		filter.Closed = &v
	}
	if blown := c.Query("blown"); blown == "true" || blown == "false" {
		v := blown == "true"
		filter.Blown = &v
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	instances, pagination, err := h.instances.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instances, pagination)
}

// Get godoc
// @Summary Get instance detail with its log trail
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.Envelope
// @Router /instances/{id} [get]
func (h *InstanceHandler) Get(c *gin.Context) {
	view, err := h.instances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CreateOneOff godoc
// @Summary Create a one-off instance
// @Tags Instances
// @Accept json
// @Produce json
// @Param payload body service.CreateOneOffRequest true "Instance payload"
// @Success 201 {object} response.Envelope
// @Router /instances [post]
func (h *InstanceHandler) CreateOneOff(c *gin.Context) {
	var req service.CreateOneOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.instances.CreateOneOff(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Delete godoc
// @Summary Delete an instance, reversing any standing effect of its closure
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id} [delete]
func (h *InstanceHandler) Delete(c *gin.Context) {
	h.transition(c, h.instances.Delete)
}

// SignIn godoc
// @Summary Sign in to an open unfilled instance
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/sign-in [post]
func (h *InstanceHandler) SignIn(c *gin.Context) {
	h.transition(c, h.instances.SignIn)
}

// SignOut godoc
// @Summary Sign out of an instance
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/sign-out [post]
func (h *InstanceHandler) SignOut(c *gin.Context) {
	h.transition(c, h.instances.SignOut)
}

// Sell godoc
// @Summary Put a held instance up for another member to take
// @Tags Instances
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body handler.SellRequest false "Sell note"
// @Success 204
// @Router /instances/{id}/sell [post]
func (h *InstanceHandler) Sell(c *gin.Context) {
	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, err := h.actorFor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.instances.Sell(c.Request.Context(), c.Param("id"), actor, req.Note); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Verify godoc
// @Summary Verify a completed instance
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/verify [post]
func (h *InstanceHandler) Verify(c *gin.Context) {
	h.transition(c, h.instances.Verify)
}

// Unverify godoc
// @Summary Reverse a verification
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/unverify [post]
func (h *InstanceHandler) Unverify(c *gin.Context) {
	h.transition(c, h.instances.Unverify)
}

// MarkBlown godoc
// @Summary Mark an instance blown
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/blown [post]
func (h *InstanceHandler) MarkBlown(c *gin.Context) {
	h.transition(c, h.instances.MarkBlown)
}

// UnmarkBlown godoc
// @Summary Reverse a blown mark
// @Tags Instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 204
// @Router /instances/{id}/unblown [post]
func (h *InstanceHandler) UnmarkBlown(c *gin.Context) {
	h.transition(c, h.instances.UnmarkBlown)
}

// EditHours godoc
// @Summary Override the hour credit of an instance
// @Tags Instances
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body handler.EditHoursRequest true "Hour payload"
// @Success 204
// @Router /instances/{id}/hours [put]
func (h *InstanceHandler) EditHours(c *gin.Context) {
	var req EditHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, err := h.actorFor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.instances.EditHours(c.Request.Context(), c.Param("id"), req.Hours, req.Note, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// transition resolves the actor and applies one state-machine step.
func (h *InstanceHandler) transition(c *gin.Context, fn func(ctx context.Context, instanceID string, actor service.Actor) error) {
	actor, err := h.actorFor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := fn(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// actorFor resolves the acting profile in the instance's semester.
func (h *InstanceHandler) actorFor(c *gin.Context) (service.Actor, error) {
	view, err := h.instances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return service.Actor{}, err
	}
	return resolveActor(c.Request.Context(), c, h.profiles, view.SemesterID)
}
