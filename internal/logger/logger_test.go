package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Service: "agora-gate", Version: "test", Environment: "dev", Output: &buf})
	log.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "agora-gate", line["service"])
	assert.Equal(t, "hello", line["message"])
}

func TestFromContextFallsBackToNop(t *testing.T) {
	log := FromContext(context.Background())
	log.Info().Msg("dropped")

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(Config{Output: &buf}))
	l := FromContext(ctx)
	l.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(GinMiddleware(New(Config{Output: &buf})))
	r.GET("/ping", func(c *gin.Context) {
		l := FromContext(c.Request.Context())
		l.Info().Msg("inside")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Cookie", "agora_access_token=secret")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "inside")
	assert.Contains(t, buf.String(), `"path":"/ping"`)
	assert.NotContains(t, buf.String(), "secret")
}
