package reports_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func useMemoryStore(t *testing.T, tenant string) context.Context {
	t.Helper()
	s, err := docstore.OpenInMemory()
	require.NoError(t, err)
	config.SetDocStore(s)
	t.Cleanup(func() {
		config.SetDocStore(nil)
		_ = s.Close()
	})
	return utils.SetTenantIdInContext(context.Background(), tenant)
}

// seedTwoVillages registers A with demographics 100/60/40 for 2024 and B with nothing.
func seedTwoVillages(t *testing.T, ctx context.Context) (*models.Village, *models.Village) {
	t.Helper()
	a, err := models.CreateVillage(ctx, &models.NewVillage{NameEn: "A", NameMr: "ए"})
	require.NoError(t, err)
	b, err := models.CreateVillage(ctx, &models.NewVillage{NameEn: "B", NameMr: "बी"})
	require.NoError(t, err)
	_, err = models.BulkUpsertDemographics(ctx, []*models.Demographics{
		{VillageId: a.ID, Year: 2024, MalePopulation: 60, FemalePopulation: 40, Source: "Census"},
	})
	require.NoError(t, err)
	return a, b
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func TestSummarize_ZeroFillsMissingRows(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	a, b := seedTwoVillages(t, ctx)

	summaries, err := reports.Summarize(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, a.ID, summaries[0].Village.ID)
	require.Equal(t, b.ID, summaries[1].Village.ID)

	require.Equal(t, 100, summaries[0].Demographics.TotalPopulation)
	require.Equal(t, 0, summaries[1].Demographics.TotalPopulation)
	require.Equal(t, b.ID, summaries[1].Demographics.VillageId)
	for _, s := range summaries {
		require.Len(t, s.Breakdowns, len(models.Categories))
		for i, c := range models.Categories {
			require.Equal(t, c, s.Breakdowns[i].Category)
		}
	}
	require.True(t, reports.HasData(summaries))

	totals := reports.ComputeTotals(summaries)
	require.Equal(t, reports.DemographicsTotals{Total: 100, Male: 60, Female: 40}, totals.Demographics)
	require.Len(t, totals.WaterSources, 7)
	require.True(t, totals.WaterSources[6].IsText)
}

func TestSummarize_EmptyYearKeepsVillages(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)

	summaries, err := reports.Summarize(ctx, 2023)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.False(t, reports.HasData(summaries))
}

func TestSummarize_RejectsYearOutOfRange(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	_, err := reports.Summarize(ctx, 1899)
	require.True(t, utils.IsValidationError(err), "got %v", err)
}

func TestSumCategories_Share(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	a, _ := seedTwoVillages(t, ctx)
	_, err := models.BulkUpsertPopulationBreakdowns(ctx, []*models.PopulationBreakdown{
		{VillageId: a.ID, Year: 2024, Category: models.CategoryST, MaleCount: 1, FemaleCount: 0},
		{VillageId: a.ID, Year: 2024, Category: models.CategorySC, MaleCount: 1, FemaleCount: 1},
	})
	require.NoError(t, err)

	summaries, err := reports.Summarize(ctx, 2024)
	require.NoError(t, err)
	cats := reports.SumCategories(summaries)
	require.Equal(t, "33.33", cats[0].Share.StringFixed(2))
	require.Equal(t, "66.67", cats[1].Share.StringFixed(2))
	require.Equal(t, "0.00", cats[2].Share.StringFixed(2))
	// breakdown save replaced the entered figures
	require.Equal(t, 3, reports.SumDemographics(summaries).Total)
}

func TestRender_NoVillages(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	_, err := reports.Render(ctx, 2024, reports.Options{Now: fixedNow})
	require.True(t, utils.IsDataUnavailable(err), "got %v", err)
}

func TestRender_InvalidOptions(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)
	cases := []reports.Options{
		{Orientation: "sideways"},
		{Format: "docx"},
	}
	for _, opts := range cases {
		_, err := reports.Render(ctx, 2024, opts)
		require.True(t, utils.IsValidationError(err), "got %v", err)
	}
}

func TestRender_PDF(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)

	for _, o := range []reports.Orientation{reports.Landscape, reports.Portrait} {
		doc, err := reports.Download(ctx, 2024, reports.Options{Orientation: o, TenantDisplayName: "Wagholi", Now: fixedNow})
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
		require.Equal(t, "Village_Statistics_2024_20240315_103000.pdf", doc.FileName)
		require.Equal(t, "application/pdf", doc.ContentType)
		require.Equal(t, `attachment; filename="Village_Statistics_2024_20240315_103000.pdf"`, doc.ContentDisposition())
	}

	preview, err := reports.Preview(ctx, 2024, reports.Options{Now: fixedNow})
	require.NoError(t, err)
	require.Contains(t, preview.ContentDisposition(), "inline")
}

func TestRender_PDFWithManyVillagesAndLogo(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	for i := 0; i < 40; i++ {
		_, err := models.CreateVillage(ctx, &models.NewVillage{NameEn: "Village with a rather long name", NameMr: "गाव"})
		require.NoError(t, err)
	}
	doc, err := reports.Render(ctx, 2024, reports.Options{Logo: pngBytes(t, 64, 64), Now: fixedNow})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
}

func TestRender_XLSX(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)

	doc, err := reports.Render(ctx, 2024, reports.Options{Format: reports.FormatXLSX, Now: fixedNow})
	require.NoError(t, err)
	require.Equal(t, "Village_Statistics_2024_20240315_103000.xlsx", doc.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Demographics", "Category Breakdown", "Groups", "Water Sources", "Tap Connections"}, f.GetSheetList())

	rows, err := f.GetRows("Demographics")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	require.Equal(t, "TOTAL", last[0])
	require.Equal(t, "100", last[1])
	require.Equal(t, "60", last[2])
	require.Equal(t, "40", last[3])
}

func TestPublicStatistics(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)

	_, err := reports.PublicStatistics(ctx, 2023)
	require.True(t, utils.IsDataUnavailable(err), "got %v", err)

	summary, err := reports.PublicStatistics(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, summary.Villages, 2)
	require.Equal(t, 100, summary.Totals.Demographics.Total)
}

func TestNormalizeLogo(t *testing.T) {
	out, err := reports.NormalizeLogo(pngBytes(t, 600, 300))
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 128, img.Bounds().Dy())

	_, err = reports.NormalizeLogo([]byte("not an image"))
	require.Error(t, err)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 255, G: 107, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

type fakeBlobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures int
	uploads  int
	deleted  []string
}

func newFakeBlobs(failures int) *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, failures: failures}
}

func (f *fakeBlobs) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploads <= f.failures {
		return "", errors.New("transient")
	}
	f.objects[key] = data
	return "https://storage.example/" + key, nil
}

func (f *fakeBlobs) Download(_ context.Context, key string, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, utils.NewNotFoundError("object", key)
	}
	return data, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func TestArchiveReport(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	seedTwoVillages(t, ctx)
	doc, err := reports.Render(ctx, 2024, reports.Options{Now: fixedNow})
	require.NoError(t, err)

	blobs := newFakeBlobs(2)
	snap, err := reports.ArchiveReport(ctx, blobs, doc, "Gram sabha copy")
	require.NoError(t, err)
	require.Equal(t, 3, blobs.uploads)
	require.Equal(t, "reports/gp1/"+doc.FileName, snap.ObjectKey)
	require.Equal(t, "pdf", snap.Format)
	require.Equal(t, models.ReportTypeFull, snap.Type)

	year := 2024
	list, err := models.ListReportSnapshots(ctx, &year)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, data, err := reports.OpenArchivedReport(ctx, blobs, snap.ID)
	require.NoError(t, err)
	require.Equal(t, snap.ID, got.ID)
	require.Equal(t, doc.Data, data)

	_, err = reports.DeleteArchivedReport(ctx, blobs, snap.ID)
	require.NoError(t, err)
	require.Equal(t, []string{snap.ObjectKey}, blobs.deleted)
	_, err = models.GetReportSnapshot(ctx, snap.ID)
	require.True(t, utils.IsNotFound(err))
}

func TestArchiveReport_GivesUpAfterRetries(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	blobs := newFakeBlobs(10)
	doc := &reports.Document{Year: 2024, Format: reports.FormatPDF, FileName: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}

	_, err := reports.ArchiveReport(ctx, blobs, doc, "")
	require.Error(t, err)
	require.Equal(t, 3, blobs.uploads)
}

func TestArchiveReport_RemovesUploadWhenRecordFails(t *testing.T) {
	ctx := useMemoryStore(t, "gp1")
	blobs := newFakeBlobs(0)
	doc := &reports.Document{Year: 1800, Format: reports.FormatPDF, FileName: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}

	_, err := reports.ArchiveReport(ctx, blobs, doc, "")
	require.True(t, utils.IsValidationError(err), "got %v", err)
	require.Empty(t, blobs.objects)
	require.Len(t, blobs.deleted, 1)
}
