package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchsocial/backend/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{Environment: "production", LogLevel: "info"}, &buf)
	log.Debug("hidden")
	log.Info("published", "channel", "group.1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "published", line["msg"])
	assert.Equal(t, "group.1", line["channel"])
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "/api/v1/ws", RedactQuery("/api/v1/ws"))
	assert.Equal(t, "/api/v1/ws?token=REDACTED", RedactQuery("/api/v1/ws?token=eyJhbGci.abc.def"))
	assert.Equal(t, "/api/v1/groups?limit=5", RedactQuery("/api/v1/groups?limit=5"))
	assert.Equal(t, "/x?REDACTED", RedactQuery("/x?token=%zz"))
}

func TestAccessLogHidesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(AccessLog(&buf))
	r.GET("/api/v1/ws", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=secret-jwt&v=2", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, buf.String(), "secret-jwt")
	assert.Contains(t, buf.String(), "token=REDACTED")
	assert.Contains(t, buf.String(), "v=2")
}
