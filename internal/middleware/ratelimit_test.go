package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func chatContext(tenantID string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/chat/query", nil)
	if tenantID != "" {
		c.Set(ContextTenantIDKey, tenantID)
	}
	return c
}

func TestRateLimitPerTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handle := RateLimit(2, time.Minute)

	for i := 0; i < 2; i++ {
		c := chatContext("acme")
		handle(c)
		require.False(t, c.IsAborted())
	}
	c := chatContext("acme")
	handle(c)
	require.True(t, c.IsAborted())

	other := chatContext("globex")
	handle(other)
	require.False(t, other.IsAborted())
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handle := RateLimit(0, time.Minute)
	for i := 0; i < 5; i++ {
		c := chatContext("acme")
		handle(c)
		require.False(t, c.IsAborted())
	}
}
