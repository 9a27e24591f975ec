package reports

import (
	"fmt"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	sheetDemographics = "Demographics"
	sheetCategories   = "Category Breakdown"
	sheetGroups       = "Groups"
	sheetWater        = "Water Sources"
	sheetTaps         = "Tap Connections"
)

type excelStyles struct {
	title  int
	header int
	number int
	total  int
}

type sheetWriter struct {
	f      *excelize.File
	name   string
	row    int
	styles excelStyles
	err    error
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "FF6B00"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FF6B00"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}); err != nil {
		return s, err
	}
	if s.number, err = f.NewStyle(&excelize.Style{NumFmt: 3}); err != nil {
		return s, err
	}
	s.total, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F0F0F0"}, Pattern: 1},
		NumFmt: 3,
	})
	return s, err
}

func (w *sheetWriter) cell(col int) string {
	name, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

// writeRow puts values on the current row starting at column A and applies style across them.
func (w *sheetWriter) writeRow(values []any, style int) {
	if w.err != nil || len(values) == 0 {
		w.row++
		return
	}
	first := w.cell(1)
	if err := w.f.SetSheetRow(w.name, first, &values); err != nil {
		w.err = err
	}
	if style != 0 && w.err == nil {
		if err := w.f.SetCellStyle(w.name, first, w.cell(len(values)), style); err != nil {
			w.err = err
		}
	}
	w.row++
}

func (w *sheetWriter) merge(fromCol, toCol int) {
	if w.err != nil {
		return
	}
	if err := w.f.MergeCell(w.name, w.cell(fromCol), w.cell(toCol)); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) widths(first float64, rest float64, cols int) {
	if w.err != nil || cols == 0 {
		return
	}
	if err := w.f.SetColWidth(w.name, "A", "A", first); err != nil {
		w.err = err
		return
	}
	if cols > 1 {
		last, _ := excelize.ColumnNumberToName(cols)
		if err := w.f.SetColWidth(w.name, "B", last, rest); err != nil {
			w.err = err
		}
	}
}

// preamble writes the report title block shared by every sheet.
func (w *sheetWriter) preamble(year int, opts Options, heading string) {
	w.writeRow([]any{opts.Title}, w.styles.title)
	w.writeRow([]any{opts.TenantDisplayName}, 0)
	w.writeRow([]any{fmt.Sprintf("Year: %d", year)}, 0)
	w.row++
	w.writeRow([]any{heading}, w.styles.title)
}

func (w *sheetWriter) dataRow(values []any) {
	w.writeRow(values, w.styles.number)
}

func renderXLSX(year int, summaries []*VillageSummary, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", sheetDemographics); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetCategories, sheetGroups, sheetWater, sheetTaps} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writers := []func(*sheetWriter){
		func(w *sheetWriter) { demographicsSheet(w, year, summaries, opts) },
		func(w *sheetWriter) { categoriesSheet(w, year, summaries, opts) },
		func(w *sheetWriter) { groupsSheet(w, year, summaries, opts) },
		func(w *sheetWriter) { waterSheet(w, year, summaries, opts) },
		func(w *sheetWriter) { tapsSheet(w, year, summaries, opts) },
	}
	for i, name := range []string{sheetDemographics, sheetCategories, sheetGroups, sheetWater, sheetTaps} {
		w := &sheetWriter{f: f, name: name, row: 1, styles: styles}
		writers[i](w)
		if w.err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, w.err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func demographicsSheet(w *sheetWriter, year int, summaries []*VillageSummary, opts Options) {
	w.preamble(year, opts, "Population Demographics")
	w.writeRow([]any{"Village", "Total Population", "Male", "Female", "Source"}, w.styles.header)
	for _, s := range summaries {
		d := s.Demographics
		w.dataRow([]any{s.Village.NameEn, d.TotalPopulation, d.MalePopulation, d.FemalePopulation, d.Source})
	}
	t := SumDemographics(summaries)
	w.writeRow([]any{"TOTAL", t.Total, t.Male, t.Female, ""}, w.styles.total)
	w.widths(28, 16, 5)
}

func categoriesSheet(w *sheetWriter, year int, summaries []*VillageSummary, opts Options) {
	w.preamble(year, opts, "Category-wise Population Breakdown")
	groupRow := []any{"Village"}
	subRow := []any{""}
	for _, c := range models.Categories {
		groupRow = append(groupRow, string(c), "", "")
		subRow = append(subRow, "Male", "Female", "Total")
	}
	w.writeRow(groupRow, w.styles.header)
	w.row--
	for i := range models.Categories {
		w.merge(2+i*3, 4+i*3)
	}
	w.row++
	w.writeRow(subRow, w.styles.header)

	for _, s := range summaries {
		row := []any{s.Village.NameEn}
		for _, c := range models.Categories {
			b := breakdownFor(s, c)
			row = append(row, b.MaleCount, b.FemaleCount, b.MaleCount+b.FemaleCount)
		}
		w.dataRow(row)
	}
	totals := SumCategories(summaries)
	total := []any{"TOTAL"}
	share := []any{"Share %"}
	for _, ct := range totals {
		total = append(total, ct.Male, ct.Female, ct.Total)
		share = append(share, "", "", ct.Share.StringFixed(2))
	}
	w.writeRow(total, w.styles.total)
	w.writeRow(share, 0)
	w.widths(28, 10, 1+3*len(models.Categories))
}

func groupsSheet(w *sheetWriter, year int, summaries []*VillageSummary, opts Options) {
	w.preamble(year, opts, "Groups & Committees")
	w.writeRow([]any{"Village", "Mahila Bachat Gat", "Yuvak Mandal", "Kisan Gat", "Other Groups", "Total"}, w.styles.header)
	for _, s := range summaries {
		g := s.Groups
		w.dataRow([]any{s.Village.NameEn, g.MahilaBachatGatCount, g.YuvakMandalCount, g.KisanGatCount, g.OtherGroupCount, g.Total()})
	}
	t := SumGroups(summaries)
	w.writeRow([]any{"TOTAL", t.MahilaBachatGat, t.YuvakMandal, t.KisanGat, t.Other, t.Total}, w.styles.total)
	w.widths(28, 18, 6)
}

func waterSheet(w *sheetWriter, year int, summaries []*VillageSummary, opts Options) {
	w.preamble(year, opts, "Water Supply Sources")
	header := []any{"Source"}
	for _, s := range summaries {
		header = append(header, s.Village.NameEn)
	}
	header = append(header, "Total")
	w.writeRow(header, w.styles.header)
	for _, row := range WaterSourceRows(summaries) {
		cells := []any{row.Label}
		if row.IsText {
			for _, t := range row.Texts {
				cells = append(cells, textOrDash(t))
			}
			cells = append(cells, "-")
		} else {
			for _, v := range row.Values {
				cells = append(cells, v)
			}
			cells = append(cells, row.Total)
		}
		w.dataRow(cells)
	}
	w.widths(24, 16, len(header))
}

func tapsSheet(w *sheetWriter, year int, summaries []*VillageSummary, opts Options) {
	w.preamble(year, opts, "Tap Connection Details")
	w.writeRow([]any{"Village", "Families", "Old Connections", "New Connections", "Total Connections", "Private Wells", "Pending", "Notes"}, w.styles.header)
	for _, s := range summaries {
		in := s.Infrastructure
		w.dataRow([]any{s.Village.NameEn, in.Families, in.OldTapConnections, in.NewTapConnections, in.TotalTapConnections, in.PrivateWellsForTap, in.PendingTapConnections, in.Notes})
	}
	t := SumTaps(summaries)
	w.writeRow([]any{"TOTAL", t.Families, t.Old, t.New, t.Total, t.PrivateWells, t.Pending, ""}, w.styles.total)
	w.widths(28, 16, 8)
}
