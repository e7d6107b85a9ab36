package handler

import (
	"net/http"
	"strconv"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
)

// CreditAccount
// @Summary Credit an account
// @Description Adds funds to an account and records a ledger entry
// @Tags accounts
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Account ID"
// @Param request body model.LedgerRequest true "Amount and reason"
// @Success 200 {object} model.LedgerResponse "Already processed"
// @Success 201 {object} model.LedgerResponse "Created"
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Failure 404 {object} model.ErrorResponse "Account not found"
// @Router /accounts/{id}/credit [post]
func (h *Handler) CreditAccount(c *gin.Context) {
	h.applyLedgerRequest(c, model.DirectionCredit)
}

// DebitAccount
// @Summary Debit an account
// @Description Removes funds from an account and records a ledger entry
// @Tags accounts
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Account ID"
// @Param request body model.LedgerRequest true "Amount and reason"
// @Success 200 {object} model.LedgerResponse "Already processed"
// @Success 201 {object} model.LedgerResponse "Created"
// @Failure 400 {object} model.ErrorResponse "Insufficient funds"
// @Failure 404 {object} model.ErrorResponse "Account not found"
// @Router /accounts/{id}/debit [post]
func (h *Handler) DebitAccount(c *gin.Context) {
	h.applyLedgerRequest(c, model.DirectionDebit)
}

func (h *Handler) applyLedgerRequest(c *gin.Context, direction model.LedgerDirection) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID <= 0 {
		h.handleError(c, model.ErrAccountNotFound)
		return
	}

	var req model.LedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	var resp *model.LedgerResponse
	if direction == model.DirectionCredit {
		resp, err = h.ledgerService.Credit(c.Request.Context(), targetID, &req)
	} else {
		resp, err = h.ledgerService.Debit(c.Request.Context(), targetID, &req)
	}
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

// GetBalance
// @Summary Get account balance
// @Description Returns the current balance for an account
// @Tags accounts
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Account ID"
// @Success 200 {object} model.BalanceResponse
// @Failure 404 {object} model.ErrorResponse "Account not found"
// @Router /accounts/{id}/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrAccountNotFound)
		return
	}

	resp, err := h.ledgerService.GetBalance(c.Request.Context(), targetID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetLedgerEntries
// @Summary Get account ledger
// @Description Returns a paginated list of ledger entries for an account
// @Tags accounts
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Account ID"
// @Param limit query int false "Limit" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} model.LedgerListResponse
// @Failure 404 {object} model.ErrorResponse "Account not found"
// @Router /accounts/{id}/ledger [get]
func (h *Handler) GetLedgerEntries(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrAccountNotFound)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledgerService.GetLedgerEntries(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.LedgerListResponse{
		Entries: entries,
		Total:   len(entries),
		Limit:   limit,
		Offset:  offset,
	})
}
