package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noteRouter mimics POST /notes: the handler reads the whole body.
func noteRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/notes", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.String(http.StatusRequestEntityTooLarge, "read limit %d", tooLarge.Limit)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusCreated, "%d", len(body))
	})
	return router
}

func noteBody(size int) string {
	return `{"content":"` + strings.Repeat("n", size) + `"}`
}

func TestBodyLimit_DeclaredLengthTooLarge(t *testing.T) {
	router := noteRouter(64)
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(noteBody(200)))
	req.Header.Set(RequestIDHeader, "req-note-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-note-42", resp.Error.RequestID)
	assert.Equal(t, http.StatusRequestEntityTooLarge, dto.GetHTTPStatus(resp.Error.Code))
}

func TestBodyLimit_WithinLimit(t *testing.T) {
	router := noteRouter(1024)
	body := noteBody(100)
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, strconv.Itoa(len(body)), w.Body.String(), "handler sees the full body")
}

func TestBodyLimit_StreamedBodyIsCapped(t *testing.T) {
	router := noteRouter(64)
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(noteBody(500)))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "read limit 64", w.Body.String())
}

func TestBodyLimit_DisabledWhenNotPositive(t *testing.T) {
	for _, limit := range []int64{0, -1} {
		router := noteRouter(limit)
		body := noteBody(4096)
		req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code, "limit %d", limit)
		assert.Equal(t, strconv.Itoa(len(body)), w.Body.String(), "limit %d", limit)
	}
}
