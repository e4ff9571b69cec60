package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-pos-api/internal/service"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
	"github.com/noah-isme/studio-pos-api/pkg/response"
)

// PaymentHandler exposes payment registration, history and void endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	receipts *service.ReceiptService
}

// NewPaymentHandler constructs PaymentHandler. The receipt service is
// optional; when absent payments are registered without issuing receipts.
func NewPaymentHandler(payments *service.PaymentService, receipts *service.ReceiptService) *PaymentHandler {
	return &PaymentHandler{payments: payments, receipts: receipts}
}

// Register godoc
// @Summary Register a payment
// @Description Apply a payment to a student's account, rolling the billing cycle when it completes
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.RegisterPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Register(c *gin.Context) {
	var req service.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RecordedBy = currentUserID(c)

	payment, student, err := h.payments.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{"payment": payment, "student": student}
	if h.receipts != nil {
		if receipt, err := h.receipts.Issue(c.Request.Context(), payment.ID); err == nil {
			body["receipt"] = receipt
		}
	}
	response.Created(c, body)
}

// Void godoc
// @Summary Void a payment
// @Description Cancel a payment and rebuild the student's cycle from the surviving ledger
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.VoidPaymentRequest true "Void payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/void [post]
func (h *PaymentHandler) Void(c *gin.Context) {
	var req service.VoidPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UserID = currentUserID(c)

	student, err := h.payments.Void(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// History godoc
// @Summary Payment history for a student
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Param includeVoided query bool false "Include voided payments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	includeVoided, _ := strconv.ParseBool(c.DefaultQuery("includeVoided", "false"))
	payments, err := h.payments.History(c.Request.Context(), c.Param("id"), includeVoided)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Pause godoc
// @Summary Pause a student
// @Description Push the due date past one class occurrence
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/pause [post]
func (h *PaymentHandler) Pause(c *gin.Context) {
	result, err := h.payments.Pause(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unpause godoc
// @Summary Resume a paused student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/unpause [post]
func (h *PaymentHandler) Unpause(c *gin.Context) {
	student, err := h.payments.Unpause(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
