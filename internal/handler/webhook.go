package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Payment-Signature"

// PaymentWebhook
// @Summary Payment gateway webhook
// @Description Credits an account after verifying the gateway signature. Replays of the same reference are acknowledged without moving money again.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Payment-Signature header string true "Hex HMAC-SHA256 of the raw body"
// @Param request body model.PaymentWebhookRequest true "Payment notification"
// @Success 200 {object} model.LedgerResponse "Already processed"
// @Success 201 {object} model.LedgerResponse "Credited"
// @Failure 400 {object} model.ErrorResponse "Invalid signature or payload"
// @Failure 404 {object} model.ErrorResponse "Account not found"
// @Router /webhooks/payments [post]
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "failed to read request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		h.handleError(c, model.ErrInvalidSignature)
		return
	}

	var req model.PaymentWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.AccountID <= 0 || req.Reference == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid webhook payload",
			Code: "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.ledgerService.Credit(c.Request.Context(), req.AccountID, &model.LedgerRequest{
		Amount:    req.Amount,
		Reason:    model.ReasonDeposit,
		Reference: req.Reference,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	statusCode := http.StatusCreated
	if resp.Msg == "already processed" {
		statusCode = http.StatusOK
	}
	c.JSON(statusCode, resp)
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
