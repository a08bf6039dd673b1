package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/leads/:id/activity", "leads"},
		{"/api/v1/users", "users"},
		{"/api/v2/components/access", "components"},
		{"/health", "health"},
		{"/api/v1/:id", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceFromRoute(tt.route))
		})
	}
}

func TestProfilingWithConfig_AttachesLabels(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(PrincipalKey, identity.Principal{UserID: 9, RoleRank: identity.RankManager})
		c.Next()
	})
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: true, SkipPaths: []string{"/health"}}))

	var got map[string]string
	collect := func(c *gin.Context) {
		got = map[string]string{}
		pprof.ForLabels(c.Request.Context(), func(k, v string) bool {
			got[k] = v
			return true
		})
		c.Status(http.StatusOK)
	}
	router.GET("/api/v1/leads/:id", collect)
	router.GET("/health", collect)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/leads/42", nil))
	assert.Equal(t, "GET", got["method"])
	assert.Equal(t, "/api/v1/leads/:id", got["route"])
	assert.Equal(t, "leads", got["resource"])
	assert.Equal(t, "3", got["role_rank"])

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, got)
}

func TestProfilingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(ProfilingWithConfig(ProfilingConfig{}))
	var labelled bool
	router.GET("/x", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(string, string) bool {
			labelled = true
			return false
		})
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.False(t, labelled)
}
