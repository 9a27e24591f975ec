package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/utils"
)

// reportOptions reads ?format=&title=&orientation= and fills the tenant's
// name and logo.
func (a *app) reportOptions(c *gin.Context) reports.Options {
	opts := reports.Options{
		Title:       strings.TrimSpace(c.Query("title")),
		Format:      reports.Format(strings.TrimSpace(c.Query("format"))),
		Orientation: reports.Orientation(strings.TrimSpace(c.Query("orientation"))),
	}
	tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())
	return reports.WithTenant(c.Request.Context(), a.blobs, tenantId, opts)
}

func serveDocument(c *gin.Context, doc *reports.Document) {
	c.Header("Content-Disposition", doc.ContentDisposition())
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func (a *app) previewReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		doc, err := reports.Preview(c.Request.Context(), year, a.reportOptions(c))
		if err != nil {
			respondError(c, err, false)
			return
		}
		serveDocument(c, doc)
	}
}

func (a *app) downloadReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		doc, err := reports.Download(c.Request.Context(), year, a.reportOptions(c))
		if err != nil {
			respondError(c, err, false)
			return
		}
		serveDocument(c, doc)
	}
}

type archiveReportRequest struct {
	Description string `json:"description"`
}

func (a *app) archiveReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.blobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report storage is not configured"})
			return
		}
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, true)
			return
		}
		var req archiveReportRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		ctx := c.Request.Context()
		doc, err := reports.Download(ctx, year, a.reportOptions(c))
		if err != nil {
			respondError(c, err, false)
			return
		}
		snapshot, err := reports.ArchiveReport(ctx, a.blobs, doc, strings.TrimSpace(req.Description))
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": snapshot})
	}
}

func listReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var year *int
		if raw := strings.TrimSpace(c.Query("year")); raw != "" {
			y, err := strconv.Atoi(raw)
			if err != nil {
				respondError(c, utils.NewValidationError("year", "must be a number"), false)
				return
			}
			year = &y
		}
		list, err := models.ListReportSnapshots(c.Request.Context(), year)
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

func (a *app) deleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := reports.DeleteArchivedReport(c.Request.Context(), a.blobs, c.Param("id"))
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": snapshot})
	}
}

// publicReportHandler serves the PDF preview of a tenant's year to visitors.
func (a *app) publicReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		opts := a.reportOptions(c)
		opts.Format = reports.FormatPDF
		doc, err := reports.Preview(c.Request.Context(), year, opts)
		if err != nil {
			respondError(c, err, false)
			return
		}
		serveDocument(c, doc)
	}
}
