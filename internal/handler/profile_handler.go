package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// ProfileHandler exposes workshift profile endpoints.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// HourAdjustmentRequest sets the manual hour adjustment on one
// profile-pool account.
type HourAdjustmentRequest struct {
	PoolID     string  `json:"pool_id" binding:"required"`
	Adjustment float64 `json:"adjustment"`
}

// List godoc
// @Summary List profiles of a semester
// @Tags Profiles
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId required"))
		return
	}
	profiles, err := h.profiles.List(c.Request.Context(), semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, nil)
}

// Create godoc
// @Summary Add a member to a running semester
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body service.CreateProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Router /profiles [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	var req service.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile, err := h.profiles.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Get godoc
// @Summary Get profile detail with preferences and hour accounts
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	view, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Me godoc
// @Summary Get the authenticated member's profile for a semester
// @Tags Profiles
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId required"))
		return
	}
	profile, err := h.profiles.GetByMember(c.Request.Context(), claims.MemberID, semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.profiles.Get(c.Request.Context(), profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SavePreferences godoc
// @Summary Save a profile's ratings, time blocks and note
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body service.SavePreferencesRequest true "Preference payload"
// @Success 204
// @Router /profiles/{id}/preferences [put]
func (h *ProfileHandler) SavePreferences(c *gin.Context) {
	var req service.SavePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profileID := c.Param("id")
	if err := h.authorizeProfile(c, profileID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.profiles.SavePreferences(c.Request.Context(), profileID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetHourAdjustment godoc
// @Summary Set the manual hour adjustment on a profile-pool account
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body handler.HourAdjustmentRequest true "Adjustment payload"
// @Success 204
// @Router /profiles/{id}/adjustment [put]
func (h *ProfileHandler) SetHourAdjustment(c *gin.Context) {
	var req HourAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.profiles.SetHourAdjustment(c.Request.Context(), c.Param("id"), req.PoolID, req.Adjustment); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// authorizeProfile allows a member to touch their own profile; managers
// may touch any.
func (h *ProfileHandler) authorizeProfile(c *gin.Context, profileID string) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, appErrors.ErrUnauthorized.Message)
	}
	if claims.WorkshiftManager {
		return nil
	}
	view, err := h.profiles.Get(c.Request.Context(), profileID)
	if err != nil {
		return err
	}
	if view.MemberID != claims.MemberID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot modify another member's profile")
	}
	return nil
}
