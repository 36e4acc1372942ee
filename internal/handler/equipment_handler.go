package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
	"labreserve/internal/service"
)

// EquipmentHandler handles equipment registry endpoints.
type EquipmentHandler struct {
	equipmentService service.EquipmentService
}

// NewEquipmentHandler creates a new equipment handler.
func NewEquipmentHandler(equipmentService service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipmentService: equipmentService}
}

// EquipmentRequest represents an equipment create or update request.
type EquipmentRequest struct {
	Name              string `json:"name" validate:"required"`
	Description       string `json:"description"`
	InventoryNumber   string `json:"inventory_number" validate:"required"`
	TotalQuantity     uint   `json:"total_quantity" validate:"required,gt=0"`
	AvailableQuantity *uint  `json:"available_quantity"`
	Status            string `json:"status"`
	LabID             *uint  `json:"lab_id"`
}

func (r EquipmentRequest) toInput() service.EquipmentInput {
	return service.EquipmentInput{
		Name:              r.Name,
		Description:       r.Description,
		InventoryNumber:   r.InventoryNumber,
		TotalQuantity:     r.TotalQuantity,
		AvailableQuantity: r.AvailableQuantity,
		Status:            model.EquipmentStatus(r.Status),
		LabID:             r.LabID,
	}
}

// Create godoc
// @Summary Create equipment
// @Tags equipment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EquipmentRequest true "Equipment data"
// @Success 201 {object} model.Equipment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /equipment [post]
func (h *EquipmentHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	var req EquipmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	equip, err := h.equipmentService.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, equip)
}

// Update godoc
// @Summary Update equipment
// @Tags equipment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Equipment ID"
// @Param request body EquipmentRequest true "Equipment data"
// @Success 200 {object} model.Equipment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /equipment/{id} [put]
func (h *EquipmentHandler) Update(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req EquipmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	equip, err := h.equipmentService.Update(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, equip)
}

// Delete godoc
// @Summary Delete equipment
// @Tags equipment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Equipment ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /equipment/{id} [delete]
func (h *EquipmentHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.equipmentService.Delete(c.Request().Context(), actor, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.NoContent(http.StatusNoContent)
}

// Get godoc
// @Summary Get equipment by id
// @Tags equipment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Equipment ID"
// @Success 200 {object} model.Equipment
// @Failure 404 {object} errors.ErrorResponse
// @Router /equipment/{id} [get]
func (h *EquipmentHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	equip, err := h.equipmentService.Get(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, equip)
}

// List godoc
// @Summary List equipment
// @Tags equipment
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param lab_id query int false "Filter by lab"
// @Param search query string false "Search in name and inventory number"
// @Success 200 {array} model.Equipment
// @Router /equipment [get]
func (h *EquipmentHandler) List(c echo.Context) error {
	filter := repository.EquipmentFilter{
		Status: model.EquipmentStatus(c.QueryParam("status")),
		LabID:  queryUint(c, "lab_id"),
		Search: c.QueryParam("search"),
	}
	equipment, err := h.equipmentService.List(c.Request().Context(), filter)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, equipment)
}
