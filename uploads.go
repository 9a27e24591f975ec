package main

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/sirupsen/logrus"
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func logoObjectKey(tenantId string) string {
	return path.Join(tenantId, "logo", uuid.NewString()+".png")
}

// uploadLogoHandler accepts a multipart "file", normalises it to a PNG and
// makes it the tenant's report logo. The previous logo object is removed.
func (a *app) uploadLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		if a.blobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage provider not configured"})
			return
		}
		ctx := c.Request.Context()
		tenantId, _ := utils.GetTenantIdFromContext(ctx)

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if header.Size > reports.MaxLogoBytes() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		if mime := header.Header.Get("Content-Type"); mime != "" && !imageMimeTypes[mime] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, reports.MaxLogoBytes()+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
			return
		}

		png, err := reports.NormalizeLogo(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid image: %v", err)})
			return
		}

		previous, err := models.GetGramPanchayat(ctx, tenantId)
		if err != nil {
			respondError(c, err, true)
			return
		}
		objectKey := logoObjectKey(tenantId)
		url, err := a.blobs.Upload(ctx, objectKey, png, "image/png")
		if err != nil {
			config.LogError(logger, "Uploads", "uploadLogoHandler", "upload logo", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload logo"})
			return
		}
		if err := models.SetGramPanchayatLogo(ctx, tenantId, objectKey); err != nil {
			_ = a.blobs.Delete(ctx, objectKey)
			respondError(c, err, true)
			return
		}
		if previous.LogoObjectKey != "" && previous.LogoObjectKey != objectKey {
			if err := a.blobs.Delete(ctx, previous.LogoObjectKey); err != nil {
				config.LogError(logger, "Uploads", "uploadLogoHandler", "delete previous logo", previous.LogoObjectKey, err)
			}
		}

		logger.WithFields(logrus.Fields{
			"tenant_id":  tenantId,
			"size":       len(png),
			"object_key": objectKey,
		}).Info("[logo.upload]")

		c.JSON(http.StatusOK, gin.H{"data": gin.H{"objectKey": objectKey, "logoUrl": url}})
	}
}

// publicLogoHandler streams the tenant's logo.
func (a *app) publicLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantId, _ := utils.GetTenantIdFromContext(ctx)
		gp, err := models.GetGramPanchayat(ctx, tenantId)
		if err != nil {
			respondError(c, err, false)
			return
		}
		if gp.LogoObjectKey == "" || a.blobs == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		data, err := a.blobs.Download(ctx, gp.LogoObjectKey, reports.MaxLogoBytes())
		if err != nil {
			if utils.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
				return
			}
			respondError(c, err, false)
			return
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, "image/png", data)
	}
}
