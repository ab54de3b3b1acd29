package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/database"
	"github.com/tieubaoca/policy-assistant/repository"
	"github.com/tieubaoca/policy-assistant/service"
	"github.com/tieubaoca/policy-assistant/types"
	"github.com/tieubaoca/policy-assistant/utils"
)

const testSecret = "test-secret"

type stubLLM struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
}

func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.answer, s.err
}

type testServer struct {
	router *gin.Engine
	repo   repository.InteractionRepo
	llm    *stubLLM
	db     *sql.DB
}

func seedPolicies(t *testing.T, db *sql.DB) {
	t.Helper()
	docs := [][]any{
		{"doc-ui", "Unemployment Insurance Handbook", "Department of Labor", "https://example.gov/ui", "completed"},
		{"doc-snap", "SNAP Household Guide", "Department of Agriculture", nil, "completed"},
		{"doc-housing", "Housing Choice Vouchers", "Housing Authority", nil, "completed"},
		{"doc-draft", "Draft Unemployment Rules", "Department of Labor", nil, "pending"},
	}
	for _, d := range docs {
		_, err := db.Exec(`INSERT INTO documents (id, title, source, url, status) VALUES (?, ?, ?, ?, ?)`, d...)
		require.NoError(t, err)
	}
	chunks := [][]any{
		{"ui-0", "doc-ui", 0, "Eligibility", "Unemployment benefits are paid to workers who lose their job through no fault of their own."},
		{"ui-1", "doc-ui", 1, "Filing", "Submit your unemployment claim online within seven days of losing work."},
		{"ui-2", "doc-ui", 2, "Appeals", "Appeal a denied claim within thirty days."},
		{"snap-0", "doc-snap", 0, nil, "SNAP benefits help households buy groceries."},
		{"snap-1", "doc-snap", 1, "Income", "Gross monthly income must stay under the limit."},
		{"housing-0", "doc-housing", 0, "Vouchers", "Rental assistance vouchers cover part of monthly rent."},
		{"housing-1", "doc-housing", 1, nil, "Landlords must pass an inspection before vouchers are issued."},
		{"housing-2", "doc-housing", 2, nil, "Tenants report changes in household size within thirty days."},
		{"draft-0", "doc-draft", 0, nil, "Unemployment benefits draft that is never shown."},
	}
	for _, c := range chunks {
		_, err := db.Exec(`INSERT INTO chunks (id, document_id, ordinal, section, content) VALUES (?, ?, ?, ?, ?)`, c...)
		require.NoError(t, err)
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "policy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(ctx, db, "sqlite"))
	seedPolicies(t, db)

	llm := &stubLLM{answer: "Workers who lose their job may receive unemployment benefits [1]."}
	repo := repository.NewSQLiteInteractionRepo(db)
	chat := service.NewChatService(
		service.NewPrivacyGate(),
		service.NewRetriever(database.NewSQLiteIndex(db), 8, time.Second, logger),
		service.NewAnswerGenerator(llm, time.Second, 0, logger),
		repo,
		time.Second,
		logger,
	)
	router := NewRouter(
		RouterConfig{JWTSecret: testSecret},
		NewChatHandler(chat, service.NewWebSocketService(chat, logger), logger),
		NewSearchHandler(chat, logger),
		NewHealthHandler(true),
		logger,
	)
	return &testServer{router: router, repo: repo, llm: llm, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) types.ChatResponse {
	t.Helper()
	var res types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestChatBlocked(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "My case # 1234567 needs help", SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"citations":[]`)

	res := decodeChat(t, w)
	assert.Equal(t, service.BLOCKED_MESSAGE, res.Answer)
	assert.Empty(t, res.ChatID)

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, s.llm.calls)
}

func TestChatNoResults(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "zoning variance hearing", SessionID: "s1"})
	assert.Equal(t, http.StatusOK, w.Code)

	res := decodeChat(t, w)
	assert.Equal(t, service.NO_RESULTS_MESSAGE+"\n\n"+service.DISCLAIMER, res.Answer)
	assert.Empty(t, res.Citations)
	assert.Equal(t, "s1", res.SessionID)
	assert.NotEmpty(t, res.ChatID)

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ChatID, history[0].ID)
	assert.Empty(t, history[0].Citations)
}

func TestChatAnswered(t *testing.T) {
	s := newTestServer(t)
	question := "Unemployment benefits"

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: question, SessionID: "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeChat(t, w)

	require.Len(t, res.Citations, 3)
	titles := map[string]int{}
	for i, c := range res.Citations {
		assert.Equal(t, i+1, c.ID)
		titles[c.Title]++
	}
	assert.Equal(t, map[string]int{"Unemployment Insurance Handbook": 2, "SNAP Household Guide": 1}, titles)
	assert.Contains(t, res.Answer, service.DISCLAIMER)
	assert.Equal(t, 1, strings.Count(res.Answer, service.DISCLAIMER))

	for _, c := range res.Citations {
		if c.Title == "SNAP Household Guide" {
			assert.Equal(t, "General", c.Section)
			assert.Nil(t, c.URL)
			assert.Contains(t, w.Body.String(), `"url":null`)
		} else {
			require.NotNil(t, c.URL)
			assert.Equal(t, "https://example.gov/ui", *c.URL)
		}
	}

	// citation order mirrors retrieval order
	sw := s.do(t, http.MethodGet, "/search?q=Unemployment+benefits", nil)
	require.Equal(t, http.StatusOK, sw.Code)
	var search types.SearchResponse
	require.NoError(t, json.Unmarshal(sw.Body.Bytes(), &search))
	require.Len(t, search.Passages, 3)
	for i, p := range search.Passages {
		assert.Equal(t, p.Title, res.Citations[i].Title)
	}

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Citations, history[0].Citations)
}

func TestChatLLMFailureFallsBack(t *testing.T) {
	s := newTestServer(t)
	s.llm.err = errors.New("context deadline exceeded")

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1", ResponseType: "detailed"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeChat(t, w)

	require.Len(t, res.Citations, 3)
	assert.Equal(t, service.FallbackAnswer(res.Citations), res.Answer)
	assert.True(t, strings.HasPrefix(res.Answer, service.FALLBACK_APOLOGY))
	assert.True(t, strings.HasSuffix(res.Answer, service.DISCLAIMER))
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.VALIDATION_MESSAGE, decodeChat(t, w).Answer)

	w = s.do(t, http.MethodPost, "/chat", `{"question": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.VALIDATION_MESSAGE, decodeChat(t, w).Answer)
}

func TestChatNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	chat := service.NewChatService(nil, nil, nil, nil, 0, logger)
	router := NewRouter(RouterConfig{},
		NewChatHandler(chat, service.NewWebSocketService(chat, logger), logger),
		NewSearchHandler(chat, logger),
		NewHealthHandler(false),
		logger,
	)
	s := &testServer{router: router}

	w := s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, service.NOT_CONFIGURED_MESSAGE, decodeChat(t, w).Answer)

	w = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatUsesTokenIdentity(t *testing.T) {
	s := newTestServer(t)
	token, err := utils.GenerateIdentityToken(testSecret, "token@example.com", time.Hour)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/chat",
		types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1", UserEmail: "body@example.com"},
		"Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/chat",
		types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1", UserEmail: "body@example.com"},
		"Authorization", "Bearer not-a-token")
	require.Equal(t, http.StatusOK, w.Code)

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].UserEmail)
	require.NotNil(t, history[1].UserEmail)
	emails := []string{*history[0].UserEmail, *history[1].UserEmail}
	assert.ElementsMatch(t, []string{"token@example.com", "body@example.com"}, emails)
}

func TestFeedback(t *testing.T) {
	s := newTestServer(t)
	res := decodeChat(t, s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1"}))
	require.NotEmpty(t, res.ChatID)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/feedback", types.FeedbackRequest{ChatID: res.ChatID, Feedback: "good"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.FEEDBACK_POSITIVE, history[0].Feedback)
	assert.Equal(t, res.Answer, history[0].Answer)
}

func TestFeedbackUnknownChat(t *testing.T) {
	s := newTestServer(t)
	res := decodeChat(t, s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1"}))

	w := s.do(t, http.MethodPost, "/feedback", types.FeedbackRequest{ChatID: "no-such-chat", Feedback: "bad"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	history, err := s.repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ChatID, history[0].ID)
	assert.Equal(t, types.FEEDBACK_UNSET, history[0].Feedback)
}

func TestFeedbackInvalid(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/feedback", types.FeedbackRequest{ChatID: "x", Feedback: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/feedback", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHistory(t *testing.T) {
	s := newTestServer(t)
	first := decodeChat(t, s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "Unemployment benefits", SessionID: "s1"}))
	time.Sleep(2 * time.Millisecond)
	second := decodeChat(t, s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "zoning variance", SessionID: "s1"}))
	s.do(t, http.MethodPost, "/chat", types.ChatRequest{Question: "zoning variance", SessionID: "s2"})

	w := s.do(t, http.MethodGet, "/chat-history?sessionId=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res types.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Messages, 2)
	assert.Equal(t, first.ChatID, res.Messages[0].ID)
	assert.Equal(t, "Unemployment benefits", res.Messages[0].Question)
	assert.Len(t, res.Messages[0].Citations, 3)
	assert.Equal(t, second.ChatID, res.Messages[1].ID)
	assert.NotZero(t, res.Messages[1].CreatedAt)

	w = s.do(t, http.MethodGet, "/chat-history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchBlocked(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/search?q=ssn+123-45-6789", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndCors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = s.do(t, http.MethodOptions, "/chat", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
