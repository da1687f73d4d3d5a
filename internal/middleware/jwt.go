package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docrag/internal/pkg/errcode"
	"github.com/xxxsen/docrag/internal/pkg/jwt"
	"github.com/xxxsen/docrag/internal/pkg/response"
)

const ContextTenantIDKey = "tenant_id"

// JWTAuth resolves the tenant from a bearer token. Every downstream
// operation is scoped to that tenant.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextTenantIDKey, claims.TenantID)
		c.Next()
	}
}

func TenantID(c *gin.Context) string {
	value, _ := c.Get(ContextTenantIDKey)
	tenantID, _ := value.(string)
	return tenantID
}
