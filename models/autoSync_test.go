package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/stretchr/testify/require"
)

func categoryRows(villageId string, year int, counts map[models.Category][2]int) []*models.PopulationBreakdown {
	rows := make([]*models.PopulationBreakdown, 0, len(models.Categories))
	for _, c := range models.Categories {
		mf := counts[c]
		rows = append(rows, &models.PopulationBreakdown{VillageId: villageId, Year: year, Category: c, MaleCount: mf[0], FemaleCount: mf[1]})
	}
	return rows
}

func TestBreakdownSave_SyncsDemographics(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	a := createVillage(t, ctx, "A")

	// independently entered figures are overwritten by the category sums
	_, err := models.BulkUpsertDemographics(ctx, []*models.Demographics{
		{VillageId: a.ID, Year: 2024, MalePopulation: 400, FemalePopulation: 380, Source: "Survey"},
	})
	require.NoError(t, err)

	_, err = models.BulkUpsertPopulationBreakdowns(ctx, categoryRows(a.ID, 2024, map[models.Category][2]int{
		models.CategoryST: {10, 5},
		models.CategorySC: {8, 2},
	}))
	require.NoError(t, err)

	demo, err := models.GetDemographicsByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, demo, 1)
	require.Equal(t, 25, demo[0].TotalPopulation)
	require.Equal(t, 18, demo[0].MalePopulation)
	require.Equal(t, 7, demo[0].FemalePopulation)
	require.Equal(t, models.AutoSyncSource, demo[0].Source)
}

func TestSyncDemographicsFromBreakdowns_IsIdempotent(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	a := createVillage(t, ctx, "A")
	b := createVillage(t, ctx, "B")

	rows := append(categoryRows(a.ID, 2024, map[models.Category][2]int{models.CategoryOBC: {3, 4}}),
		categoryRows(b.ID, 2024, map[models.Category][2]int{models.CategoryOther: {1, 1}})...)
	_, err := models.BulkUpsertPopulationBreakdowns(ctx, rows)
	require.NoError(t, err)

	targets := []models.VillageYear{{VillageId: a.ID, Year: 2024}, {VillageId: b.ID, Year: 2024}}
	for i := 0; i < 2; i++ {
		_, err := models.SyncDemographicsFromBreakdowns(ctx, targets)
		require.NoError(t, err)
	}

	demo, err := models.GetDemographicsByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, demo, 2)
	totals := map[string]int{}
	for _, d := range demo {
		require.Equal(t, d.MalePopulation+d.FemalePopulation, d.TotalPopulation)
		totals[d.VillageId] = d.TotalPopulation
	}
	require.Equal(t, map[string]int{a.ID: 7, b.ID: 2}, totals)
}

func TestOrphanedStatistics(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	a := createVillage(t, ctx, "A")
	b := createVillage(t, ctx, "B")

	_, err := models.BulkUpsertVillageGroups(ctx, []*models.VillageGroups{
		{VillageId: a.ID, Year: 2024, KisanGatCount: 1},
		{VillageId: b.ID, Year: 2024, KisanGatCount: 2},
	})
	require.NoError(t, err)
	_, err = models.BulkUpsertPopulationBreakdowns(ctx, categoryRows(b.ID, 2024, nil))
	require.NoError(t, err)

	count, err := models.CountVillageStatistics(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 6, count, "1 group row, 4 breakdown rows and 1 synced demographics row")

	_, err = models.DeleteVillage(ctx, b.ID)
	require.NoError(t, err)

	// deletion does not cascade
	groups, err := models.GetVillageGroupsByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	orphans, err := models.FindOrphanedStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 6)
	for _, o := range orphans {
		require.Equal(t, b.ID, o.VillageId)
	}

	purged, err := models.PurgeOrphanedStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, purged, 6)

	orphans, err = models.FindOrphanedStatistics(ctx)
	require.NoError(t, err)
	require.Empty(t, orphans)
	groups, err = models.GetVillageGroupsByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, a.ID, groups[0].VillageId)
}

func TestReportSnapshots(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")

	first, err := models.CreateReportSnapshot(ctx, &models.ReportSnapshot{Year: 2023, Title: "Village Statistics Report", Format: "PDF", FileName: "a.pdf"})
	require.NoError(t, err)
	require.Equal(t, models.ReportTypeFull, first.Type)
	require.Equal(t, "pdf", first.Format)
	second, err := models.CreateReportSnapshot(ctx, &models.ReportSnapshot{Year: 2024, Title: "Village Statistics Report", Format: "xlsx", FileName: "b.xlsx"})
	require.NoError(t, err)

	all, err := models.ListReportSnapshots(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID, "newest first")

	year := 2023
	only, err := models.ListReportSnapshots(ctx, &year)
	require.NoError(t, err)
	require.Len(t, only, 1)
	require.Equal(t, first.ID, only[0].ID)

	_, err = models.CreateReportSnapshot(ctx, &models.ReportSnapshot{Year: 2024, Title: "x", Format: "docx", FileName: "c.docx"})
	require.True(t, utils.IsValidationError(err))

	_, err = models.DeleteReportSnapshot(ctx, first.ID)
	require.NoError(t, err)
	_, err = models.GetReportSnapshot(ctx, first.ID)
	require.True(t, utils.IsNotFound(err))
}

func TestCreateGramPanchayatAndAuthenticate(t *testing.T) {
	useMemoryStore(t, "unused")
	ctx := context.Background()

	input := &models.NewGramPanchayat{
		ID:            "wagholi",
		Name:          "Gram Panchayat Wagholi",
		Domain:        "wagholi.example.in",
		AdminEmail:    "Admin@Wagholi.in",
		AdminPassword: "s3cret-pass",
		ContactPhone:  "98220 12345",
	}
	gp, err := models.CreateGramPanchayat(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "wagholi", gp.ID)
	require.Equal(t, "+919822012345", gp.ContactPhone)
	require.True(t, gp.IsActive)

	tenantCtx := utils.SetTenantIdInContext(ctx, "wagholi")
	years, err := models.ListYears(tenantCtx)
	require.NoError(t, err)
	require.Len(t, years, 1)

	account, err := models.Authenticate(ctx, "admin@wagholi.in", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "wagholi", account.TenantId)
	require.Equal(t, models.RoleAdmin, account.Role)

	_, err = models.Authenticate(ctx, "admin@wagholi.in", "wrong")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials))
	_, err = models.Authenticate(ctx, "nobody@wagholi.in", "s3cret-pass")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials))

	again := *input
	_, err = models.CreateGramPanchayat(ctx, &again)
	require.True(t, utils.IsValidationError(err), "duplicate tenant must be rejected")

	bad := *input
	bad.ID = "No Spaces"
	_, err = models.CreateGramPanchayat(ctx, &bad)
	require.True(t, utils.IsValidationError(err))
}
