package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bodyLimitRouter(maxBytes int64) (*gin.Engine, *int) {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(maxBytes))
	var read int
	echo := func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		read = len(raw)
		if err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
	router.POST("/leads", echo)
	router.PATCH("/leads/:id", echo)
	router.GET("/leads", echo)
	return router, &read
}

func TestBodyLimit(t *testing.T) {
	t.Run("lead payload within limit", func(t *testing.T) {
		router, read := bodyLimitRouter(1024)
		body := `{"firstname":"Ann","lastname":"Lee"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body)))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, len(body), *read)
	})

	t.Run("declared length over limit is rejected before the handler", func(t *testing.T) {
		router, read := bodyLimitRouter(1024)
		req := httptest.NewRequest(http.MethodPatch, "/leads/7", strings.NewReader(strings.Repeat("x", 2048)))
		req.Header.Set(RequestIDHeader, "req-big")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Zero(t, *read)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "Request body exceeds the 1.0 KiB limit", resp.Error.Message)
		assert.Equal(t, "req-big", resp.Error.RequestID)
	})

	t.Run("chunked body is cut off at the limit", func(t *testing.T) {
		router, read := bodyLimitRouter(50)
		req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.LessOrEqual(t, *read, 50)
	})

	t.Run("reads skip the limit", func(t *testing.T) {
		router, _ := bodyLimitRouter(10)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads?q=ann", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("non-positive limit disables the cap", func(t *testing.T) {
		router, read := bodyLimitRouter(0)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(strings.Repeat("x", 4096))))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 4096, *read)
	})
}

func TestCarriesBody(t *testing.T) {
	assert.False(t, carriesBody(httptest.NewRequest(http.MethodGet, "/", strings.NewReader("x"))))
	assert.False(t, carriesBody(httptest.NewRequest(http.MethodDelete, "/", nil)))
	assert.True(t, carriesBody(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("x"))))
	assert.True(t, carriesBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))))
}
