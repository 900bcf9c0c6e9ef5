package advisory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"compound-site/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGeminiServer(t *testing.T, text string, status int) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		bodies = append(bodies, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []interface{}{map[string]interface{}{"text": text}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestGeminiGeneratorEndToEnd(t *testing.T) {
	reply := `{"eligible": true, "score": 91, "reasoning": "Strong DTC brand.", "recommendation": "Apply now."}`
	srv, bodies := fakeGeminiServer(t, reply, http.StatusOK)

	cfg := &Config{APIKey: "test-key", Model: "gemini-2.5-flash", BaseURL: srv.URL + "/", Timeout: 5 * time.Second}
	gen, err := NewGeminiGenerator(context.Background(), cfg)
	require.NoError(t, err)

	h := newTestHandler(t, cfg, gen)
	v, err := h.Check(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, v.Source)
	assert.Equal(t, 91, v.Score)

	require.Len(t, *bodies, 1)
	genCfg, ok := (*bodies)[0]["generationConfig"].(map[string]interface{})
	require.True(t, ok, "generation config sent")
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.NotNil(t, genCfg["responseSchema"])
}

func TestGeminiGeneratorServerErrorFallsBack(t *testing.T) {
	srv, _ := fakeGeminiServer(t, "", http.StatusInternalServerError)

	cfg := &Config{APIKey: "test-key", Model: "gemini-2.5-flash", BaseURL: srv.URL + "/", Timeout: 5 * time.Second}
	gen, err := NewGeminiGenerator(context.Background(), cfg)
	require.NoError(t, err)

	h, err := NewHandler(cfg, gen, logger.NewNoOpLogger())
	require.NoError(t, err)

	v, err := h.Check(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, FallbackResult, v.Result)
}

func TestResponseSchemaRequiresAllFields(t *testing.T) {
	s := responseSchema()
	assert.ElementsMatch(t, []string{"eligible", "score", "reasoning", "recommendation"}, s.Required)
	assert.Len(t, s.Properties, 4)
}
