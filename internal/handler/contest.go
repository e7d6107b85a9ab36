package handler

import (
	"net/http"
	"strconv"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
)

// CreateContest
// @Summary Create a contest
// @Description Creates a draft contest linked to a test
// @Tags contests
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param request body model.CreateContestRequest true "Contest details"
// @Success 201 {object} model.Contest
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Failure 404 {object} model.ErrorResponse "Test not found"
// @Router /contests [post]
func (h *Handler) CreateContest(c *gin.Context) {
	var req model.CreateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	contest, err := h.contestService.CreateContest(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contest)
}

// ListContests
// @Summary List contests
// @Description Returns contests, optionally filtered by status
// @Tags contests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param status query string false "Status filter" Enums(draft, live, completed)
// @Param limit query int false "Limit" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} model.Contest
// @Router /contests [get]
func (h *Handler) ListContests(c *gin.Context) {
	status := model.ContestStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contests, err := h.contestService.ListContests(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contests)
}

// GetContest
// @Summary Get a contest
// @Tags contests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Contest ID"
// @Success 200 {object} model.Contest
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /contests/{id} [get]
func (h *Handler) GetContest(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrContestNotFound)
		return
	}

	contest, err := h.contestService.GetContest(c.Request.Context(), contestID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

// OpenContest
// @Summary Open a contest
// @Description Moves a draft contest to live once its test is finalized
// @Tags contests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Contest ID"
// @Success 200 {object} model.Contest
// @Failure 400 {object} model.ErrorResponse "Invalid transition"
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /contests/{id}/open [post]
func (h *Handler) OpenContest(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrContestNotFound)
		return
	}

	contest, err := h.contestService.OpenContest(c.Request.Context(), contestID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

// JoinContest
// @Summary Join a contest
// @Description Debits the entry fee and reserves a spot for the caller
// @Tags contests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Contest ID"
// @Success 200 {object} model.JoinContestResponse
// @Failure 400 {object} model.ErrorResponse "Not live, full, already joined or insufficient funds"
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /contests/{id}/join [post]
func (h *Handler) JoinContest(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrContestNotFound)
		return
	}

	resp, err := h.contestService.JoinContest(c.Request.Context(), contestID, accountID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CloseContest
// @Summary Close and settle a contest
// @Description Ranks submissions, pays out prizes and completes the contest
// @Tags contests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Contest ID"
// @Success 200 {object} model.SettlementResponse
// @Failure 400 {object} model.ErrorResponse "Contest not live"
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /contests/{id}/close [post]
func (h *Handler) CloseContest(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrContestNotFound)
		return
	}

	resp, err := h.settlementService.CloseContest(c.Request.Context(), contestID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
