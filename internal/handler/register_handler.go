package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-pos-api/internal/service"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
	"github.com/noah-isme/studio-pos-api/pkg/response"
)

// RegisterHandler exposes cash drawer session endpoints.
type RegisterHandler struct {
	registers *service.RegisterService
}

// NewRegisterHandler constructs RegisterHandler.
func NewRegisterHandler(registers *service.RegisterService) *RegisterHandler {
	return &RegisterHandler{registers: registers}
}

// Open godoc
// @Summary Open the cash register
// @Tags Register
// @Accept json
// @Produce json
// @Param payload body service.OpenRegisterRequest true "Opening float"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register/open [post]
func (h *RegisterHandler) Open(c *gin.Context) {
	var req service.OpenRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UserID = currentUserID(c)

	session, err := h.registers.Open(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Current godoc
// @Summary Current register session with running totals
// @Tags Register
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /register/current [get]
func (h *RegisterHandler) Current(c *gin.Context) {
	summary, err := h.registers.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Close godoc
// @Summary Close the cash register
// @Description Reconciles the counted cash against recorded movements
// @Tags Register
// @Accept json
// @Produce json
// @Param payload body service.CloseRegisterRequest true "Counted cash"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /register/close [post]
func (h *RegisterHandler) Close(c *gin.Context) {
	var req service.CloseRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UserID = currentUserID(c)

	session, err := h.registers.Close(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// History godoc
// @Summary Past register sessions
// @Tags Register
// @Produce json
// @Param limit query int false "Max sessions"
// @Success 200 {object} response.Envelope
// @Router /register/history [get]
func (h *RegisterHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	sessions, err := h.registers.History(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}
