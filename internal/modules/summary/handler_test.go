package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pagemind/core/internal/modules/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group(""))
	return r
}

func postSummaries(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/summaries", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSummarizeEndpoint(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	r := newTestRouter(f)

	w := postSummaries(t, r, map[string]any{
		"url":     "https://example.com/article",
		"title":   "An Article",
		"content": "Body text.",
		"userId":  "user-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			URL       string   `json:"url"`
			URLHash   string   `json:"urlHash"`
			Summary   string   `json:"summary"`
			KeyPoints []string `json:"keyPoints"`
			FromCache bool     `json:"fromCache"`
			Timestamp string   `json:"timestamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "https://example.com/article", body.Data.URL)
	assert.NotEmpty(t, body.Data.URLHash)
	assert.Equal(t, "Generated summary.", body.Data.Summary)
	assert.Equal(t, []string{"alpha", "beta"}, body.Data.KeyPoints)
	assert.False(t, body.Data.FromCache)
	assert.Equal(t, "2026-06-01T10:00:00.000Z", body.Data.Timestamp)

	// Same URL again is served from cache.
	w = postSummaries(t, r, map[string]any{
		"url":    "https://example.com/article",
		"userId": "user-2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.FromCache)
	assert.Equal(t, 1, f.gen.calls)
}

func TestSummarizeEndpointMissingURL(t *testing.T) {
	f := newServiceFixture(t, "k")
	r := newTestRouter(f)

	w := postSummaries(t, r, map[string]any{"content": "text"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.gen.calls)
}

func TestSummarizeEndpointInvalidRoomID(t *testing.T) {
	f := newServiceFixture(t, "k")
	r := newTestRouter(f)

	w := postSummaries(t, r, map[string]any{
		"url":    "https://example.com",
		"roomId": "bad id",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummarizeEndpointRoomWithoutKey(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	r := newTestRouter(f)

	_, err := f.rooms.Create(context.Background(), "ABC123", "creator", "")
	require.NoError(t, err)

	w := postSummaries(t, r, map[string]any{
		"url":    "https://example.com",
		"roomId": "ABC123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "room does not have an API key configured", body["message"])
	assert.Equal(t, 0, f.gen.calls)
}

func TestSummarizeEndpointGenerationError(t *testing.T) {
	f := newServiceFixture(t, "k")
	f.gen.err = &gemini.GenerationError{Detail: "quota exceeded"}
	r := newTestRouter(f)

	w := postSummaries(t, r, map[string]any{"url": "https://example.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["message"], "quota exceeded")
}
