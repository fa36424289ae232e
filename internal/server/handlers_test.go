package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitalparbhani/backend/internal/chat"
	"digitalparbhani/backend/internal/config"
	"digitalparbhani/backend/internal/conversation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type modelFunc func(ctx context.Context, prompt string) (string, error)

func (f modelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newTestApp(t *testing.T, client modelFunc, timeout time.Duration) (*gin.Engine, *conversation.Store) {
	t.Helper()

	cfg := config.Config{
		AppName:          "Digital Parbhani Chat API",
		AIProvider:       config.ProviderMock,
		CORSAllowOrigins: []string{"*"},
	}
	logger := log.New(io.Discard)
	store := conversation.NewStore(10)
	service := chat.NewService(client, store, logger, chat.Options{
		ContextWindow:  5,
		Timeout:        timeout,
		RepairFollowUp: true,
	})
	return New(cfg, service, store, logger).Router(), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		encoded, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPostChatReturnsStructuredReply(t *testing.T) {
	t.Parallel()

	router, store := newTestApp(t, func(context.Context, string) (string, error) {
		return "Aww no, headaches suck 😣 Wanna book?\n" +
			`{"profiles": [{"name": "Dr. Meera Patil", "designation": "Neurologist", "contact_number": "9876543210", "rating": 4.8}], "follow_up": true, "follow_up_type": "appointment", "appointment": false, "task": false}`, nil
	}, time.Second)

	rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{
		"message": "i have a headache",
		"user_id": "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	body := decodeBody(t, rec)
	assert.Equal(t, "Aww no, headaches suck 😣 Wanna book?", body["response"])
	assert.Equal(t, true, body["follow_up"])
	assert.Equal(t, "appointment", body["follow_up_type"])
	assert.Equal(t, false, body["appointment"])
	assert.Equal(t, false, body["task"])

	profiles, ok := body["profiles"].([]any)
	require.True(t, ok)
	require.Len(t, profiles, 1)
	profile := profiles[0].(map[string]any)
	assert.Equal(t, "Dr. Meera Patil", profile["name"])
	assert.Equal(t, 4.8, profile["rating"])
	assert.Nil(t, profile["specialization"])

	assert.Equal(t, 1, store.Len("u1"))
}

func TestPostChatDropsNonFiniteRating(t *testing.T) {
	t.Parallel()

	router, store := newTestApp(t, func(context.Context, string) (string, error) {
		return "Here is someone who can help 😌\n" +
			`{"profiles": [{"name": "Dr. Meera Patil", "designation": "Neurologist", "contact_number": "9876543210", "rating": "NaN"}], "follow_up": true, "follow_up_type": "appointment"}`, nil
	}, time.Second)

	rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{"message": "i have a headache", "user_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Here is someone who can help 😌", body["response"])
	profiles, ok := body["profiles"].([]any)
	require.True(t, ok)
	require.Len(t, profiles, 1)
	profile := profiles[0].(map[string]any)
	assert.Contains(t, profile, "rating")
	assert.Nil(t, profile["rating"])
	assert.Equal(t, 1, store.Len("u1"))
}

func TestPostChatWithoutPayloadReturnsDefaults(t *testing.T) {
	t.Parallel()

	router, _ := newTestApp(t, func(context.Context, string) (string, error) {
		return "Hey there! 👋 How can I help you today?", nil
	}, time.Second)

	rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{"message": "hi", "user_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Hey there! 👋 How can I help you today?", body["response"])
	assert.Equal(t, []any{}, body["profiles"])
	assert.Contains(t, body, "follow_up_type")
	assert.Nil(t, body["follow_up_type"])
	assert.Equal(t, false, body["follow_up"])
}

func TestPostChatRejectsBadRequests(t *testing.T) {
	t.Parallel()

	router, _ := newTestApp(t, func(context.Context, string) (string, error) {
		t.Error("model must not be called for invalid requests")
		return "", nil
	}, time.Second)

	cases := []struct {
		name string
		body any
	}{
		{name: "not json", body: "{nope"},
		{name: "missing user", body: map[string]string{"message": "hi"}},
		{name: "missing message", body: map[string]string{"user_id": "u1"}},
		{name: "blank message", body: map[string]string{"message": "   ", "user_id": "u1"}},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, "/chat", tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		assert.NotEmpty(t, decodeBody(t, rec)["detail"], tc.name)
	}
}

func TestPostChatSurfacesModelFailure(t *testing.T) {
	t.Parallel()

	router, store := newTestApp(t, func(context.Context, string) (string, error) {
		return "", errors.New("gemini error (503): model overloaded")
	}, time.Second)

	rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{"message": "hi", "user_id": "u1"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], "model overloaded")
	assert.Equal(t, 0, store.Len("u1"))
}

func TestPostChatTimeout(t *testing.T) {
	t.Parallel()

	router, _ := newTestApp(t, func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, 20*time.Millisecond)

	rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{"message": "hi", "user_id": "u1"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], "timed out")
}

func TestHealthReportsConversations(t *testing.T) {
	t.Parallel()

	router, _ := newTestApp(t, func(context.Context, string) (string, error) {
		return "ok", nil
	}, time.Second)

	for _, user := range []string{"u1", "u2", "u1"} {
		rec := doJSON(t, router, http.MethodPost, "/chat", map[string]string{"message": "hi", "user_id": user})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Digital Parbhani Chat API", body["service"])
	assert.Equal(t, "mock", body["provider"])
	assert.Equal(t, float64(2), body["conversations"])
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	t.Parallel()

	app := &App{cfg: config.Config{CORSAllowOrigins: []string{"*"}}}
	assert.True(t, app.corsConfig().AllowAllOrigins)
	assert.False(t, app.corsConfig().AllowCredentials)

	app = &App{cfg: config.Config{CORSAllowOrigins: []string{"https://parbhani.example"}}}
	cfg := app.corsConfig()
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://parbhani.example"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
}
