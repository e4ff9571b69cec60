package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-pos-api/internal/service"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
	"github.com/noah-isme/studio-pos-api/pkg/response"
)

// ReceiptHandler exposes receipt lookup and download endpoints.
type ReceiptHandler struct {
	receipts *service.ReceiptService
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(receipts *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Link godoc
// @Summary Signed download link for a receipt
// @Tags Receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /receipts/{id}/link [get]
func (h *ReceiptHandler) Link(c *gin.Context) {
	link, err := h.receipts.Link(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a receipt PDF
// @Description The token comes from the link endpoint and expires on its own
// @Tags Receipts
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /receipts/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing download token"))
		return
	}
	path, err := h.receipts.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
