package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"labreserve/internal/auth"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
	"labreserve/internal/service"
)

// LoanHandler handles equipment loan endpoints.
type LoanHandler struct {
	loanService service.LoanService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// LoanRequest represents a loan create or update request.
type LoanRequest struct {
	UserID      uint   `json:"user_id"`
	EquipmentID uint   `json:"equipment_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	LoanDate    string `json:"loan_date" validate:"required"`
	DueDate     string `json:"due_date" validate:"required"`
}

// ReturnRequest represents an equipment return request.
type ReturnRequest struct {
	Damaged bool `json:"damaged"`
}

func (r LoanRequest) toInput() service.LoanInput {
	return service.LoanInput{
		UserID:      r.UserID,
		EquipmentID: r.EquipmentID,
		Quantity:    r.Quantity,
		LoanDate:    r.LoanDate,
		DueDate:     r.DueDate,
	}
}

// Create godoc
// @Summary Create a loan request
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LoanRequest true "Loan data"
// @Success 201 {object} model.Loan
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans [post]
func (h *LoanHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := h.loanService.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, loan)
}

// Update godoc
// @Summary Update a loan
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param request body LoanRequest true "Loan data"
// @Success 200 {object} model.Loan
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id} [put]
func (h *LoanHandler) Update(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := h.loanService.Update(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, loan)
}

// Delete godoc
// @Summary Delete a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id} [delete]
func (h *LoanHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.loanService.Delete(c.Request().Context(), actor, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve godoc
// @Summary Approve a loan and reserve stock
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.Loan
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c echo.Context) error {
	return h.decide(c, h.loanService.Approve)
}

// Reject godoc
// @Summary Reject a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.Loan
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c echo.Context) error {
	return h.decide(c, h.loanService.Reject)
}

func (h *LoanHandler) decide(c echo.Context, fn func(context.Context, auth.Actor, uint) (*model.Loan, error)) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	loan, err := fn(c.Request().Context(), actor, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, loan)
}

// Return godoc
// @Summary Process an equipment return
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param request body ReturnRequest false "Return details"
// @Success 200 {object} model.Loan
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req ReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	loan, err := h.loanService.Return(c.Request().Context(), actor, id, req.Damaged)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, loan)
}

// Get godoc
// @Summary Get loan by id
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.Loan
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	loan, err := h.loanService.Get(c.Request().Context(), actor, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, loan)
}

// List godoc
// @Summary List loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param equipment_id query int false "Filter by equipment"
// @Param user_id query int false "Filter by user (staff only)"
// @Param loan_date query string false "Filter by loan date"
// @Param search query string false "Search by equipment name"
// @Success 200 {array} model.Loan
// @Router /loans [get]
func (h *LoanHandler) List(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	filter := repository.LoanFilter{
		Status:      model.LoanStatus(c.QueryParam("status")),
		EquipmentID: queryUint(c, "equipment_id"),
		UserID:      queryUint(c, "user_id"),
		LoanDate:    c.QueryParam("loan_date"),
		Search:      c.QueryParam("search"),
	}
	loans, err := h.loanService.List(c.Request().Context(), actor, filter)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, loans)
}
