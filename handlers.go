package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

const saveFailedMessage = "Failed to save data. Please try again."

// respondError maps the error taxonomy onto HTTP statuses. write marks
// handlers that change data, whose store failures get a generic message.
func respondError(c *gin.Context, err error, write bool) {
	var ve *utils.ValidationError
	var du *utils.DataUnavailableError
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &du):
		c.JSON(http.StatusNotFound, gin.H{"error": du.Error()})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, tenantpath.ErrTenantMissing):
		_ = c.Error(err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrAccountDisabled):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		message := "internal error"
		if write && utils.IsStoreError(err) {
			message = saveFailedMessage
		} else if !config.IsProduction() {
			message = err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func yearParam(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Param("year"))
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.NewValidationError("year", "must be a number")
	}
	if err := models.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}
		account, err := models.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err, false)
			return
		}
		token, err := utils.JwtGenerate(account.Email, account.TenantId, account.Role)
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"tenantId": account.TenantId,
			"role":     account.Role,
			"name":     account.Name,
		})
	}
}

// villages

func listVillagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		villages, err := models.ListVillages(c.Request.Context())
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": villages})
	}
}

func createVillageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVillage
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		village, err := models.CreateVillage(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": village})
	}
}

func updateVillageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.VillageUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		village, err := models.UpdateVillage(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": village})
	}
}

func deleteVillageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		if _, err := models.GetVillage(ctx, id); err != nil {
			respondError(c, err, true)
			return
		}
		left, err := models.CountVillageStatistics(ctx, id)
		if err != nil {
			respondError(c, err, true)
			return
		}
		village, err := models.DeleteVillage(ctx, id)
		if err != nil {
			respondError(c, err, true)
			return
		}
		body := gin.H{"data": village, "orphanedRecords": left}
		if left > 0 {
			body["warning"] = fmt.Sprintf("%d statistics records still reference this village; purge orphans to remove them", left)
		}
		c.JSON(http.StatusOK, body)
	}
}

// years

type addYearRequest struct {
	Year int `json:"year"`
}

func listYearsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		years, err := models.ListYears(c.Request.Context())
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": years})
	}
}

func addYearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addYearRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		year, err := models.AddYear(c.Request.Context(), req.Year)
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": year})
	}
}

func yearsWithLatest(ctx context.Context) (gin.H, error) {
	years, err := models.ListYears(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok, err := models.LatestYear(ctx)
	if err != nil {
		return nil, err
	}
	body := gin.H{"years": years, "latestYear": nil}
	if ok {
		body["latestYear"] = latest
	}
	return body, nil
}

func latestYearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		latest, ok, err := models.LatestYear(c.Request.Context())
		if err != nil {
			respondError(c, err, false)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"data": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": latest})
	}
}

// statistics

type statisticsEndpoint struct {
	list func(ctx context.Context, year int) (any, error)
	save func(c *gin.Context, year int) (*models.UpsertResult, error)
}

func listAs[T any](fn func(context.Context, int) ([]*T, error)) func(context.Context, int) (any, error) {
	return func(ctx context.Context, year int) (any, error) {
		rows, err := fn(ctx, year)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}
}

// saveAs binds a record array, defaults each record's year to the path
// year and rejects records that name another year.
func saveAs[T any](yearOf func(*T) *int, fn func(context.Context, []*T) (*models.UpsertResult, error)) func(*gin.Context, int) (*models.UpsertResult, error) {
	return func(c *gin.Context, year int) (*models.UpsertResult, error) {
		var records []*T
		if err := c.ShouldBindJSON(&records); err != nil {
			return nil, utils.NewValidationError("records", "must be an array of records")
		}
		for i, r := range records {
			if r == nil {
				return nil, utils.NewValidationError(fmt.Sprintf("records[%d]", i), "is required")
			}
			y := yearOf(r)
			if *y == 0 {
				*y = year
			}
			if *y != year {
				return nil, utils.NewValidationError(fmt.Sprintf("records[%d].year", i), "must match %d", year)
			}
		}
		return fn(c.Request.Context(), records)
	}
}

var statisticsEndpoints = map[string]statisticsEndpoint{
	"demographics": {
		list: listAs(models.GetDemographicsByYear),
		save: saveAs(func(r *models.Demographics) *int { return &r.Year }, models.BulkUpsertDemographics),
	},
	"breakdowns": {
		list: listAs(models.GetPopulationBreakdownsByYear),
		save: saveAs(func(r *models.PopulationBreakdown) *int { return &r.Year }, models.BulkUpsertPopulationBreakdowns),
	},
	"groups": {
		list: listAs(models.GetVillageGroupsByYear),
		save: saveAs(func(r *models.VillageGroups) *int { return &r.Year }, models.BulkUpsertVillageGroups),
	},
	"infrastructure": {
		list: listAs(models.GetVillageInfrastructureByYear),
		save: saveAs(func(r *models.VillageInfrastructure) *int { return &r.Year }, models.BulkUpsertVillageInfrastructure),
	},
}

func statisticsEndpointFor(c *gin.Context) (statisticsEndpoint, bool) {
	ep, ok := statisticsEndpoints[c.Param("table")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown statistics table %q", c.Param("table"))})
	}
	return ep, ok
}

func getStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ep, ok := statisticsEndpointFor(c)
		if !ok {
			return
		}
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		rows, err := ep.list(c.Request.Context(), year)
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func putStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ep, ok := statisticsEndpointFor(c)
		if !ok {
			return
		}
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, true)
			return
		}
		result, err := ep.save(c, year)
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func summaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		summaries, err := reports.Summarize(c.Request.Context(), year)
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": reports.PublicSummary{Year: year, Villages: summaries, Totals: reports.ComputeTotals(summaries)},
		})
	}
}

// maintenance

func listOrphansHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orphans, err := models.FindOrphanedStatistics(c.Request.Context())
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": orphans, "count": len(orphans)})
	}
}

func purgeOrphansHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		purged, err := models.PurgeOrphanedStatistics(c.Request.Context())
		if err != nil {
			respondError(c, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": purged, "count": len(purged)})
	}
}

// public

func publicYearsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := yearsWithLatest(c.Request.Context())
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func publicStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := yearParam(c)
		if err != nil {
			respondError(c, err, false)
			return
		}
		summary, err := reports.PublicStatistics(c.Request.Context(), year)
		if err != nil {
			respondError(c, err, false)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}
