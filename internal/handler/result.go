package handler

import (
	"net/http"
	"strconv"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
)

// SubmitResult
// @Summary Submit contest answers
// @Description Scores the caller's answers against the contest's test
// @Tags results
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param request body model.SubmitResultRequest true "Answers"
// @Success 201 {object} model.SubmitResultResponse
// @Failure 400 {object} model.ErrorResponse "Not live or already submitted"
// @Failure 403 {object} model.ErrorResponse "Not joined"
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /results [post]
func (h *Handler) SubmitResult(c *gin.Context) {
	var req model.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.submissionService.Submit(c.Request.Context(), accountID(c), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// MyResults
// @Summary List the caller's results
// @Tags results
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param limit query int false "Limit" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} model.Submission
// @Router /results/mine [get]
func (h *Handler) MyResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	submissions, err := h.submissionService.ListByAccount(c.Request.Context(), accountID(c), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// Leaderboard
// @Summary Contest leaderboard
// @Description Returns submissions ranked by score then time taken
// @Tags results
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Contest ID"
// @Param limit query int false "Limit" default(10)
// @Success 200 {array} model.Submission
// @Failure 404 {object} model.ErrorResponse "Contest not found"
// @Router /results/leaderboard/{id} [get]
func (h *Handler) Leaderboard(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrContestNotFound)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	ranked, err := h.submissionService.Leaderboard(c.Request.Context(), contestID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}
