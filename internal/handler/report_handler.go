package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"labreserve/internal/errors"
	"labreserve/internal/service"
)

// ReportHandler handles reporting endpoints.
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Occupancy godoc
// @Summary Monthly lab occupancy report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param period query string false "Month in YYYY-MM format, defaults to the current month"
// @Success 200 {array} service.LabOccupancy
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /reports/occupancy [get]
func (h *ReportHandler) Occupancy(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	report, err := h.reportService.Occupancy(c.Request().Context(), actor, c.QueryParam("period"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, report)
}

// EquipmentUsage godoc
// @Summary Equipment usage report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD, defaults to the first of the month"
// @Param to query string false "End date YYYY-MM-DD, defaults to today"
// @Success 200 {array} repository.EquipmentUsage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /reports/equipment-usage [get]
func (h *ReportHandler) EquipmentUsage(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	report, err := h.reportService.EquipmentUsage(c.Request().Context(), actor, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, report)
}

// Incidents godoc
// @Summary Damaged equipment report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param from query string true "Start date YYYY-MM-DD"
// @Param to query string true "End date YYYY-MM-DD"
// @Success 200 {array} service.Incident
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /reports/incidents [get]
func (h *ReportHandler) Incidents(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	report, err := h.reportService.Incidents(c.Request().Context(), actor, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, report)
}
