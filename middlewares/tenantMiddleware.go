package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
)

// PublicTenant scopes a public request to the gram panchayat named by the
// :tenant path parameter. Unknown or inactive tenants get 404.
func PublicTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := strings.ToLower(strings.TrimSpace(c.Param("tenant")))
		if !models.ValidTenantId(tenantId) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "gram panchayat not found"})
			return
		}
		// a signed-in admin may browse another tenant's public pages
		ctx := utils.SetTenantIdInContext(c.Request.Context(), tenantId)
		gp, err := models.GetGramPanchayat(ctx, tenantId)
		if err != nil {
			if utils.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "gram panchayat not found"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !gp.IsActive {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "gram panchayat not found"})
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
