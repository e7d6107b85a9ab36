package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest-engine/internal/config"
	"contest-engine/internal/events"
	"contest-engine/internal/model"
	"contest-engine/internal/repository/memory"
	"contest-engine/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	pool   model.Account
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	pool := store.SeedAccount(model.Account{FullName: "Prize Pool"})
	cfg := config.ContestConfig{
		PoolAccountID:       pool.ID,
		PrizeSplit:          []int{60, 30, 10},
		DailyPrizePool:      "100",
		DailyEntryFee:       "10",
		DailyMaxSpots:       100,
		QuestionsPerTest:    5,
		TestDurationMinutes: 10,
	}
	log := zerolog.Nop()

	ledgerService := service.NewLedgerService(store, store, log)
	testBankService := service.NewTestBankService(store, store, store, log)
	contestService := service.NewContestService(store, store, store, store, cfg, log)
	submissionService := service.NewSubmissionService(store, store, store, store, log)
	settlementService := service.NewSettlementService(store, store, store, store, events.NopPublisher{}, cfg, log)

	h := NewHandler(ledgerService, testBankService, contestService,
		submissionService, settlementService, testWebhookSecret, limiter, log)

	return &testEnv{
		router: h.SetupRoutes(),
		store:  store,
		pool:   pool,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func asUser(accountID int64) map[string]string {
	return map[string]string{"X-Account-ID": fmt.Sprintf("%d", accountID)}
}

func asAdmin(accountID int64) map[string]string {
	return map[string]string{
		"X-Account-ID":   fmt.Sprintf("%d", accountID),
		"X-Account-Role": "admin",
	}
}

// buildLiveContest drives the admin endpoints end to end and returns the
// contest ID.
func (e *testEnv) buildLiveContest(t *testing.T, admin int64, entryFee string) int64 {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/v1/questions", model.CreateQuestionRequest{
		Text:          "What is 2 + 2?",
		Options:       []string{"3", "4", "5", "6"},
		CorrectOption: intPtr(1),
	}, asAdmin(admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var question model.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))

	w = e.request(t, http.MethodPost, "/api/v1/tests", model.CreateTestRequest{
		Name: "Daily Test", DurationMinutes: 10,
	}, asAdmin(admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var test model.Test
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &test))

	w = e.request(t, http.MethodPost, fmt.Sprintf("/api/v1/tests/%d/questions", test.ID),
		model.AppendQuestionRequest{QuestionID: question.ID}, asAdmin(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.request(t, http.MethodPost, fmt.Sprintf("/api/v1/tests/%d/finalize", test.ID), nil, asAdmin(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.request(t, http.MethodPost, "/api/v1/contests", model.CreateContestRequest{
		TestID: test.ID, PrizePool: "100", EntryFee: entryFee, MaxSpots: 10,
	}, asAdmin(admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var contest model.Contest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contest))

	w = e.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/open", contest.ID), nil, asAdmin(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return contest.ID
}

func intPtr(v int) *int { return &v }

func TestHandler_AuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/api/v1/contests", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/contests", nil,
		map[string]string{"X-Account-ID": "not-a-number"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_AdminRequired(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.store.SeedAccount(model.Account{})

	w := env.request(t, http.MethodPost, "/api/v1/questions", model.CreateQuestionRequest{
		Text:          "q",
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: intPtr(0),
	}, asUser(user.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FORBIDDEN", resp.Code)
}

func TestHandler_JoinContest(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.store.SeedAccount(model.Account{Role: model.RoleAdmin})
	contestID := env.buildLiveContest(t, admin.ID, "10")

	player := env.store.SeedAccount(model.Account{Balance: decimal.RequireFromString("25")})

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/join", contestID), nil, asUser(player.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.JoinContestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "15.00", resp.Balance)

	// second join is rejected with a machine-readable code
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/join", contestID), nil, asUser(player.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "ALREADY_JOINED", errResp.Code)

	// broke players get INSUFFICIENT_FUNDS
	broke := env.store.SeedAccount(model.Account{Balance: decimal.RequireFromString("1")})
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/join", contestID), nil, asUser(broke.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "INSUFFICIENT_FUNDS", errResp.Code)
}

func TestHandler_SubmitAndSettleFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.store.SeedAccount(model.Account{Role: model.RoleAdmin})
	contestID := env.buildLiveContest(t, admin.ID, "0")

	player := env.store.SeedAccount(model.Account{Balance: decimal.RequireFromString("10")})

	// submitting before joining is forbidden
	w := env.request(t, http.MethodPost, "/api/v1/results", model.SubmitResultRequest{
		ContestID: contestID, Answers: []*int{intPtr(1)},
	}, asUser(player.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/join", contestID), nil, asUser(player.ID))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/results", model.SubmitResultRequest{
		ContestID: contestID, Answers: []*int{intPtr(1)}, TimeTaken: 42,
	}, asUser(player.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var submitResp model.SubmitResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	assert.Equal(t, 1, submitResp.Score)

	// fund the pool so settlement can pay
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/credit", env.pool.ID),
		model.LedgerRequest{Amount: "1000", Reason: "pool funding"}, asAdmin(admin.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/contests/%d/close", contestID), nil, asAdmin(admin.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var settleResp model.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settleResp))
	require.NotNil(t, settleResp.WinnerID)
	assert.Equal(t, player.ID, *settleResp.WinnerID)
	require.Len(t, settleResp.Payouts, 1)
	assert.Equal(t, "60.00", settleResp.Payouts[0].Amount)

	// leaderboard reflects the single entry
	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/results/leaderboard/%d", contestID), nil, asUser(player.ID))
	require.Equal(t, http.StatusOK, w.Code)
	var ranked []model.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, player.ID, ranked[0].AccountID)
}

func TestHandler_GetBalanceNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.store.SeedAccount(model.Account{})

	w := env.request(t, http.MethodGet, "/api/v1/accounts/999/balance", nil, asUser(user.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ACCOUNT_NOT_FOUND", resp.Code)
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandler_PaymentWebhook(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.store.SeedAccount(model.Account{})

	payload, err := json.Marshal(model.PaymentWebhookRequest{
		AccountID: account.ID,
		Amount:    "40.00",
		Reference: "pay_abc123",
	})
	require.NoError(t, err)

	send := func(signature string) *httptest.ResponseRecorder {
		req, err := http.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(signatureHeader, signature)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing signature", func(t *testing.T) {
		w := send("")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		w := send("deadbeef")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_SIGNATURE", resp.Code)
	})

	t.Run("valid then replay", func(t *testing.T) {
		w := send(signBody(payload))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp model.LedgerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "40.00", resp.Balance)

		// gateway retries are acknowledged without double-crediting
		w = send(signBody(payload))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "already processed", resp.Msg)
		assert.Equal(t, "40.00", resp.Balance)
	})
}

func TestHandler_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, 3, time.Minute, zerolog.Nop())

	env := newTestEnv(t, limiter)
	user := env.store.SeedAccount(model.Account{})

	for i := 0; i < 3; i++ {
		w := env.request(t, http.MethodGet, "/api/v1/contests", nil, asUser(user.ID))
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i)
	}

	w := env.request(t, http.MethodGet, "/api/v1/contests", nil, asUser(user.ID))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Code)

	// other callers keep their own window
	other := env.store.SeedAccount(model.Account{})
	w = env.request(t, http.MethodGet, "/api/v1/contests", nil, asUser(other.ID))
	assert.Equal(t, http.StatusOK, w.Code)
}
