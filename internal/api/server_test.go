package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbchat/internal/analytics"
	"kbchat/internal/chat"
	"kbchat/internal/chat/adapters"
	ports "kbchat/internal/chat/ports"
	"kbchat/internal/kb"
)

type alwaysDown struct{}

func (alwaysDown) Alive(context.Context) bool { return false }

type cannedProvider struct{ reply string }

func (p cannedProvider) Name() string { return "canned" }

func (p cannedProvider) Complete(context.Context, []ports.PromptMessage) (string, error) {
	return p.reply, nil
}

// newTestServer wires the full stack on in-memory stores only, with no
// database behind it. providers may be empty to exercise the offline
// fallbacks.
func newTestServer(providers ...ports.Provider) *httptest.Server {
	logger := zerolog.Nop()
	health := alwaysDown{}

	fallbackArts := adapters.NewMemoryArticleStore(3)
	fallbackConvs := adapters.NewMemoryConversationStore()

	orch := chat.NewOrchestrator(
		health,
		nil, fallbackConvs,
		nil, fallbackArts,
		chat.NewRetriever(nil, fallbackArts, 3, logger),
		chat.NewPromptBuilder(5),
		chat.NewChain(providers, 0, logger),
		nil,
		5,
		logger,
	)

	articles := kb.NewService(health, nil, fallbackArts, logger)
	analyticsSvc := analytics.NewService(nil, 20)

	srv := New(orch, articles, analyticsSvc, logger)
	return httptest.NewServer(srv.Handler())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestPostChat_AnswersWithProviderReply(t *testing.T) {
	ts := newTestServer(cannedProvider{reply: "Here you go."})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", `{"sessionId": "s1", "message": "hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	decodeBody(t, resp, &got)
	assert.Equal(t, "Here you go.", got["response"])
}

func TestPostChat_ToleratesExtraFields(t *testing.T) {
	ts := newTestServer(cannedProvider{reply: "ok"})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", `{"sessionId": "s1", "message": "hi", "clientVersion": "2.1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	decodeBody(t, resp, &got)
	assert.Equal(t, "ok", got["response"])
}

func TestPostChat_MissingFieldsRejectedWithoutSideEffects(t *testing.T) {
	ts := newTestServer(cannedProvider{reply: "ok"})
	defer ts.Close()

	for _, body := range []string{
		`{"sessionId": "", "message": "hi"}`,
		`{"sessionId": "s1", "message": ""}`,
		`{}`,
		`not json`,
	} {
		resp := postJSON(t, ts.URL+"/api/chat", body)
		var got map[string]string
		decodeBody(t, resp, &got)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
		assert.Equal(t, "Session ID and message are required", got["message"])
	}

	// None of the rejected requests left a transcript behind.
	resp, err := http.Get(ts.URL + "/api/chat/history/s1")
	require.NoError(t, err)
	var turns []ports.Turn
	decodeBody(t, resp, &turns)
	assert.Empty(t, turns)
}

func TestPostChat_OfflineStillAnswers(t *testing.T) {
	ts := newTestServer() // empty chain, every request degrades
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", `{"sessionId": "s1", "message": "React"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	decodeBody(t, resp, &got)
	// Seeded fallback store has a React article, so the answer is the
	// raw context dump rather than an error.
	assert.Contains(t, got["response"], "### React")
}

func TestGetHistory_EmptyForUnknownSession(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/chat/history/never-seen")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var turns []ports.Turn
	decodeBody(t, resp, &turns)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestGetHistory_ReflectsEarlierChat(t *testing.T) {
	ts := newTestServer(cannedProvider{reply: "sure"})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", `{"sessionId": "s-hist", "message": "hello"}`)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/chat/history/s-hist")
	require.NoError(t, err)
	var turns []ports.Turn
	decodeBody(t, resp, &turns)

	require.Len(t, turns, 2)
	assert.Equal(t, ports.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, ports.RoleAssistant, turns[1].Role)
	assert.Equal(t, "sure", turns[1].Content)
}

func TestKB_ListAndCreate(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/kb")
	require.NoError(t, err)
	var articles []ports.Article
	decodeBody(t, resp, &articles)
	seeded := len(articles)
	require.NotZero(t, seeded)

	resp = postJSON(t, ts.URL+"/api/kb", `{"title": "Deploying", "content": "Use the deploy script.", "tags": ["ops"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created ports.Article
	decodeBody(t, resp, &created)
	assert.Equal(t, "Deploying", created.Title)
	assert.NotEmpty(t, created.ID)

	resp, err = http.Get(ts.URL + "/api/kb")
	require.NoError(t, err)
	decodeBody(t, resp, &articles)
	assert.Len(t, articles, seeded+1)
}

func TestKB_CreateRejectsInvalidPayload(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	for _, body := range []string{
		`{"content": "no title"}`,
		`{"title": "", "content": "x"}`,
		`{"title": "T", "content": "C", "extra": true}`,
	} {
		resp := postJSON(t, ts.URL+"/api/kb", body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestKB_SearchRequiresQuery(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/kb/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/kb/search?q=express")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var articles []ports.Article
	decodeBody(t, resp, &articles)
	require.NotEmpty(t, articles)
	assert.Equal(t, "Express.js Routing", articles[0].Title)
}

func TestAnalytics_ErrorsWithoutDatabase(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/analytics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRoot_Banner(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	resp.Body.Close()
	assert.Contains(t, string(body[:n]), "AI Knowledge Base Chatbot API Running")
}

func TestCORS_PreflightAllowed(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
