package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// StandingsHandler exposes hour standings, fines and the collector
// admin endpoints.
type StandingsHandler struct {
	standings *service.StandingsService
	semesters *service.SemesterService
}

// NewStandingsHandler constructs StandingsHandler.
func NewStandingsHandler(standings *service.StandingsService, semesters *service.SemesterService) *StandingsHandler {
	return &StandingsHandler{standings: standings, semesters: semesters}
}

// Standings godoc
// @Summary List hour standings for a semester
// @Tags Standings
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Param poolId query string false "Filter by pool"
// @Success 200 {object} response.Envelope
// @Router /standings [get]
func (h *StandingsHandler) Standings(c *gin.Context) {
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId required"))
		return
	}
	standings, err := h.standings.Standings(c.Request.Context(), semesterID, c.Query("poolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, standings, nil)
}

// Fines godoc
// @Summary List fines for one frozen snapshot slot
// @Tags Standings
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Param poolId query string true "Pool ID"
// @Param slot query int true "Snapshot slot (1-3)"
// @Success 200 {object} response.Envelope
// @Router /standings/fines [get]
func (h *StandingsHandler) Fines(c *gin.Context) {
	semesterID := c.Query("semesterId")
	poolID := c.Query("poolId")
	slot, err := strconv.Atoi(c.Query("slot"))
	if semesterID == "" || poolID == "" || err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId, poolId and slot required"))
		return
	}
	semester, err := h.semesters.Get(c.Request.Context(), semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	fines, err := h.standings.Fines(c.Request.Context(), semester, poolID, slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fines, nil)
}

// ExportCSV godoc
// @Summary Download standings as CSV
// @Tags Standings
// @Produce text/csv
// @Param semesterId query string true "Semester ID"
// @Param poolId query string false "Filter by pool"
// @Success 200 {file} file
// @Router /standings/export/csv [get]
func (h *StandingsHandler) ExportCSV(c *gin.Context) {
	h.export(c, "text/csv", h.standings.ExportStandingsCSV)
}

// ExportPDF godoc
// @Summary Download standings as PDF
// @Tags Standings
// @Produce application/pdf
// @Param semesterId query string true "Semester ID"
// @Param poolId query string false "Filter by pool"
// @Success 200 {file} file
// @Router /standings/export/pdf [get]
func (h *StandingsHandler) ExportPDF(c *gin.Context) {
	h.export(c, "application/pdf", h.standings.ExportStandingsPDF)
}

// Collect godoc
// @Summary Run the blown/auto-verify collector now
// @Tags Standings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /standings/collect [post]
func (h *StandingsHandler) Collect(c *gin.Context) {
	result, err := h.standings.CollectBlown(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateStandings godoc
// @Summary Run the periodic standing depletion now
// @Tags Standings
// @Success 204
// @Router /standings/update [post]
func (h *StandingsHandler) UpdateStandings(c *gin.Context) {
	if err := h.standings.UpdateStandings(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SnapshotFineDates godoc
// @Summary Freeze standings into due fine snapshot slots
// @Tags Standings
// @Success 204
// @Router /standings/snapshot-fines [post]
func (h *StandingsHandler) SnapshotFineDates(c *gin.Context) {
	if err := h.standings.SnapshotFineDates(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type exportFunc func(ctx context.Context, semesterID, poolID string) ([]byte, string, error)

func (h *StandingsHandler) export(c *gin.Context, contentType string, fn exportFunc) {
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId required"))
		return
	}
	data, filename, err := fn(c.Request.Context(), semesterID, c.Query("poolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, data)
}
