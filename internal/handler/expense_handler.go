package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-pos-api/internal/models"
	"github.com/noah-isme/studio-pos-api/internal/service"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
	"github.com/noah-isme/studio-pos-api/pkg/response"
)

// ExpenseHandler exposes expense endpoints.
type ExpenseHandler struct {
	expenses *service.ExpenseService
}

// NewExpenseHandler constructs ExpenseHandler.
func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// List godoc
// @Summary List expenses
// @Tags Expenses
// @Produce json
// @Param category query string false "Filter by category"
// @Param from query string false "From date (RFC3339)"
// @Param to query string false "To date (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	var filter models.ExpenseFilter
	filter.Category = c.Query("category")
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	expenses, pagination, err := h.expenses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, pagination)
}

// Create godoc
// @Summary Record an expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param payload body service.CreateExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req service.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RecordedBy = currentUserID(c)

	expense, err := h.expenses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// Delete godoc
// @Summary Delete an expense
// @Tags Expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	if err := h.expenses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
