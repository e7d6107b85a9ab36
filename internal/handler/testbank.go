package handler

import (
	"net/http"
	"strconv"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
)

// CreateQuestion
// @Summary Add a question to the bank
// @Tags questions
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param request body model.CreateQuestionRequest true "Question details"
// @Success 201 {object} model.Question
// @Failure 400 {object} model.ErrorResponse "Invalid question"
// @Router /questions [post]
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	question, err := h.testBankService.CreateQuestion(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// CreateTest
// @Summary Create a draft test
// @Tags tests
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param request body model.CreateTestRequest true "Test details"
// @Success 201 {object} model.Test
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Router /tests [post]
func (h *Handler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	test, err := h.testBankService.CreateDraftTest(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, test)
}

// AppendQuestion
// @Summary Append a bank question to a draft test
// @Description Embeds a snapshot of the question into the test
// @Tags tests
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Test ID"
// @Param request body model.AppendQuestionRequest true "Question to embed"
// @Success 200 {object} model.Test
// @Failure 400 {object} model.ErrorResponse "Test finalized"
// @Failure 404 {object} model.ErrorResponse "Test or question not found"
// @Router /tests/{id}/questions [post]
func (h *Handler) AppendQuestion(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrTestNotFound)
		return
	}

	var req model.AppendQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Msg:  "invalid request body",
			Code: "INVALID_REQUEST",
		})
		return
	}

	test, err := h.testBankService.AppendQuestion(c.Request.Context(), testID, req.QuestionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// FinalizeTest
// @Summary Finalize a draft test
// @Description Locks the question list and activates the test
// @Tags tests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param X-Account-Role header string true "Caller role" Enums(user, admin)
// @Param id path int true "Test ID"
// @Success 200 {object} model.Test
// @Failure 400 {object} model.ErrorResponse "Already finalized or empty"
// @Failure 404 {object} model.ErrorResponse "Test not found"
// @Router /tests/{id}/finalize [post]
func (h *Handler) FinalizeTest(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrTestNotFound)
		return
	}

	test, err := h.testBankService.FinalizeTest(c.Request.Context(), testID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// ListActiveTests
// @Summary List active tests
// @Tags tests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Success 200 {array} model.Test
// @Router /tests [get]
func (h *Handler) ListActiveTests(c *gin.Context) {
	tests, err := h.testBankService.ListActiveTests(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tests)
}

// GetTest
// @Summary Get a test
// @Tags tests
// @Produce json
// @Param X-Account-ID header int true "Caller account ID"
// @Param id path int true "Test ID"
// @Success 200 {object} model.Test
// @Failure 404 {object} model.ErrorResponse "Test not found"
// @Router /tests/{id} [get]
func (h *Handler) GetTest(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.handleError(c, model.ErrTestNotFound)
		return
	}

	test, err := h.testBankService.GetTest(c.Request.Context(), testID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}
