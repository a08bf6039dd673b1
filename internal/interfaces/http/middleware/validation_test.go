package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leadBody struct {
	FirstName string           `json:"firstname" binding:"required,max=10"`
	Email     string           `json:"email" binding:"omitempty,email"`
	Last4SSN  *string          `json:"last4_ssn" binding:"omitempty,last4_ssn"`
	Status    crm.LeadStatus   `json:"status" binding:"omitempty,lead_status"`
	Client    crm.ClientStatus `json:"client_status" binding:"omitempty,client_status"`
	Tags      []string         `json:"tags" binding:"omitempty,max=2"`
	Score     int              `json:"score" binding:"omitempty,min=1"`
}

func validationRouter(maxBytes int64) *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID(), BodyLimit(maxBytes))
	router.POST("/leads", func(c *gin.Context) {
		var req leadBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func postLead(router *gin.Engine, body string, chunked bool) (*httptest.ResponseRecorder, dto.Response) {
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-v")
	if chunked {
		req.ContentLength = -1
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var resp dto.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func detailMessages(resp dto.Response) map[string]string {
	messages := map[string]string{}
	if resp.Error == nil {
		return messages
	}
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}
	return messages
}

func TestHandleValidationError(t *testing.T) {
	router := validationRouter(1 << 20)

	t.Run("reports fields by json name", func(t *testing.T) {
		w, resp := postLead(router, `{"firstname": "Bartholomew-Jr", "email": "nope", "tags": ["a","b","c"], "score": -1}`, false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-v", resp.Error.RequestID)

		messages := detailMessages(resp)
		assert.Equal(t, "Must be at most 10 characters", messages["firstname"])
		assert.Equal(t, "Invalid email format", messages["email"])
		assert.Equal(t, "Must have at most 2 entries", messages["tags"])
		assert.Equal(t, "Must be at least 1", messages["score"])
	})

	t.Run("crm tags", func(t *testing.T) {
		_, resp := postLead(router, `{"firstname": "Ann", "status": "won", "client_status": "gone", "last4_ssn": "12a4"}`, false)
		messages := detailMessages(resp)
		assert.Equal(t, "Must be a lead status: new, contacted, qualified, converted or lost", messages["status"])
		assert.Equal(t, "Must be active or inactive", messages["client_status"])
		assert.Equal(t, "Must be 4 digits", messages["last4_ssn"])
	})

	t.Run("missing field", func(t *testing.T) {
		_, resp := postLead(router, `{"email": "ann@example.com"}`, false)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, resp := postLead(router, `{"firstname":`, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("wrong json type names the field", func(t *testing.T) {
		w, resp := postLead(router, `{"firstname": "Ann", "score": "high"}`, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Equal(t, "Must be an integer", detailMessages(resp)["score"])
	})

	t.Run("valid input passes", func(t *testing.T) {
		w, _ := postLead(router, `{"firstname": "Ann", "status": "qualified", "client_status": "active", "last4_ssn": "1234"}`, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty last4 clears", func(t *testing.T) {
		w, _ := postLead(router, `{"firstname": "Ann", "last4_ssn": ""}`, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleValidationError_ChunkedBodyOverLimit(t *testing.T) {
	router := validationRouter(64)

	body := `{"firstname": "Ann", "email": "` + strings.Repeat("a", 100) + `@example.com"}`
	w, resp := postLead(router, body, true)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "Request body exceeds the 64 B limit", resp.Error.Message)
}
