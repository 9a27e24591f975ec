package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
)

type authString string

// TenantHeader lets a super admin act on one gram panchayat.
const TenantHeader = "x-tenant-id"

// AuthMiddleware validates an optional Bearer token and copies its claims
// into the request context. Requests without a token pass through.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		isSuperAdmin := claim.Role == models.RoleSuperAdmin
		tenantId := claim.TenantId
		if isSuperAdmin {
			if requested := strings.TrimSpace(c.GetHeader(TenantHeader)); requested != "" {
				tenantId = requested
			}
		}

		ctx := context.WithValue(c.Request.Context(), authString("auth"), claim)
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetUsernameInContext(ctx, claim.Email)
		ctx = utils.SetRoleInContext(ctx, claim.Role)
		ctx = utils.SetIsSuperAdminInContext(ctx, isSuperAdmin)
		if tenantId != "" {
			ctx = utils.SetTenantIdInContext(ctx, tenantId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}

// RequireAuth rejects requests that carry no valid token or no tenant.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if tenant, ok := utils.GetTenantIdFromContext(c.Request.Context()); !ok || tenant == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no gram panchayat selected"})
			return
		}
		c.Next()
	}
}

func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := CtxValue(c.Request.Context())
		if claim == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if claim.Role != models.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
