package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
	"labreserve/internal/service"
)

// LabHandler handles lab registry endpoints.
type LabHandler struct {
	labService service.LabService
}

// NewLabHandler creates a new lab handler.
func NewLabHandler(labService service.LabService) *LabHandler {
	return &LabHandler{labService: labService}
}

// LabRequest represents a lab create or update request.
type LabRequest struct {
	Name     string `json:"name" validate:"required"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Capacity uint   `json:"capacity" validate:"required,gt=0"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

func (r LabRequest) toInput() service.LabInput {
	return service.LabInput{
		Name:     r.Name,
		Building: r.Building,
		Floor:    r.Floor,
		Capacity: r.Capacity,
		Type:     r.Type,
		Status:   model.LabStatus(r.Status),
	}
}

// Create godoc
// @Summary Create a lab
// @Tags labs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LabRequest true "Lab data"
// @Success 201 {object} model.Lab
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /labs [post]
func (h *LabHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	var req LabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lab, err := h.labService.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, lab)
}

// Update godoc
// @Summary Update a lab
// @Tags labs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lab ID"
// @Param request body LabRequest true "Lab data"
// @Success 200 {object} model.Lab
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /labs/{id} [put]
func (h *LabHandler) Update(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req LabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lab, err := h.labService.Update(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, lab)
}

// Delete godoc
// @Summary Delete a lab
// @Tags labs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lab ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /labs/{id} [delete]
func (h *LabHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.labService.Delete(c.Request().Context(), actor, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.NoContent(http.StatusNoContent)
}

// Get godoc
// @Summary Get lab by id
// @Tags labs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lab ID"
// @Success 200 {object} model.Lab
// @Failure 404 {object} errors.ErrorResponse
// @Router /labs/{id} [get]
func (h *LabHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	lab, err := h.labService.Get(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, lab)
}

// List godoc
// @Summary List labs
// @Tags labs
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param search query string false "Search in name and building"
// @Success 200 {array} model.Lab
// @Router /labs [get]
func (h *LabHandler) List(c echo.Context) error {
	filter := repository.LabFilter{
		Status: model.LabStatus(c.QueryParam("status")),
		Type:   c.QueryParam("type"),
		Search: c.QueryParam("search"),
	}
	labs, err := h.labService.List(c.Request().Context(), filter)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, labs)
}
