package reports

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/grampanchayat/villagestats_backend/models"
)

const (
	pageMargin     = 14.0
	headerBottom   = 38.0
	footerReserve  = 18.0
	sectionReserve = 60.0
	logoImageName  = "tenant-logo"
)

type rgb struct{ r, g, b int }

var (
	colorSaffron  = rgb{255, 107, 0}
	colorWhite    = rgb{255, 255, 255}
	colorGreen    = rgb{19, 136, 8}
	colorAltRow   = rgb{252, 248, 245}
	colorTotalRow = rgb{240, 240, 240}
	colorFooter   = rgb{100, 100, 100}
)

type column struct {
	header string
	width  float64
	align  string
}

type headerGroup struct {
	label string
	span  int
}

type pdfTable struct {
	groups   []headerGroup
	columns  []column
	rows     [][]string
	total    []string
	fontSize float64
	rowH     float64
}

type pdfRenderer struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	year    int
	opts    Options
	hasLogo bool
	pageW   float64
	pageH   float64
}

func renderPDF(year int, summaries []*VillageSummary, opts Options) ([]byte, error) {
	orientation := "L"
	if opts.Orientation == Portrait {
		orientation = "P"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMargin, headerBottom, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	pdf.SetCreationDate(opts.Now)
	pdf.SetModificationDate(opts.Now)
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator(opts.TenantDisplayName, true)

	r := &pdfRenderer{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		year: year,
		opts: opts,
	}
	r.pageW, r.pageH = pdf.GetPageSize()
	if len(opts.Logo) > 0 {
		if png, err := NormalizeLogo(opts.Logo); err == nil {
			pdf.RegisterImageOptionsReader(logoImageName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			r.hasLogo = pdf.Ok()
		}
	}
	pdf.SetHeaderFunc(r.pageHeader)
	pdf.SetFooterFunc(r.pageFooter)

	pdf.AddPage()
	r.populationSection(summaries)
	r.categorySection(summaries)
	r.groupsSection(summaries)
	r.infrastructureSection(summaries)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) fill(c rgb)      { r.pdf.SetFillColor(c.r, c.g, c.b) }
func (r *pdfRenderer) textColor(c rgb) { r.pdf.SetTextColor(c.r, c.g, c.b) }
func (r *pdfRenderer) usableWidth() float64 {
	return r.pageW - 2*pageMargin
}

// pageHeader draws the tricolour bands and the title block on every page.
func (r *pdfRenderer) pageHeader() {
	pdf := r.pdf
	for i, c := range []rgb{colorSaffron, colorWhite, colorGreen} {
		r.fill(c)
		pdf.Rect(0, float64(i)*3, r.pageW, 3, "F")
	}
	if r.hasLogo {
		pdf.ImageOptions(logoImageName, pageMargin, 11, 0, 22, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	r.textColor(rgb{0, 0, 0})
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(pageMargin, 12)
	pdf.CellFormat(r.usableWidth(), 8, r.tr(r.opts.Title), "", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(pageMargin, 21)
	pdf.CellFormat(r.usableWidth(), 6, r.tr(r.opts.TenantDisplayName), "", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(pageMargin, 28)
	pdf.CellFormat(r.usableWidth(), 5, fmt.Sprintf("Year: %d", r.year), "", 0, "C", false, 0, "")
	pdf.SetY(headerBottom)
}

func (r *pdfRenderer) pageFooter() {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "", 8)
	r.textColor(colorFooter)
	y := r.pageH - 12
	pdf.SetXY(pageMargin, y)
	pdf.CellFormat(r.usableWidth()/2, 5, "Generated on: "+r.opts.Now.Format("02/01/2006"), "", 0, "L", false, 0, "")
	pdf.SetXY(pageMargin+r.usableWidth()/2, y)
	pdf.CellFormat(r.usableWidth()/2, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
}

// startSection moves to a new page when little room is left, then prints the heading.
func (r *pdfRenderer) startSection(title string) {
	if r.pdf.GetY() > r.pageH-sectionReserve {
		r.pdf.AddPage()
	}
	r.pdf.SetFont("Helvetica", "B", 14)
	r.textColor(colorSaffron)
	r.pdf.SetX(pageMargin)
	r.pdf.CellFormat(r.usableWidth(), 8, title, "", 1, "L", false, 0, "")
}

func (r *pdfRenderer) subheading(title string) {
	if r.pdf.GetY() > r.pageH-sectionReserve/2 {
		r.pdf.AddPage()
	}
	r.pdf.SetFont("Helvetica", "B", 11)
	r.textColor(rgb{0, 0, 0})
	r.pdf.SetX(pageMargin)
	r.pdf.CellFormat(r.usableWidth(), 7, title, "", 1, "L", false, 0, "")
}

// fit shortens s so it fits in width at the current font.
func (r *pdfRenderer) fit(s string, width float64) string {
	s = r.tr(s)
	if r.pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && r.pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (r *pdfRenderer) tableHeader(t *pdfTable) {
	pdf := r.pdf
	r.fill(colorSaffron)
	r.textColor(colorWhite)
	pdf.SetFont("Helvetica", "B", t.fontSize)
	if len(t.groups) > 0 {
		pdf.SetX(pageMargin)
		col := 0
		for _, g := range t.groups {
			w := 0.0
			for i := 0; i < g.span; i++ {
				w += t.columns[col+i].width
			}
			col += g.span
			pdf.CellFormat(w, t.rowH, g.label, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(t.rowH)
	}
	pdf.SetX(pageMargin)
	for _, c := range t.columns {
		pdf.CellFormat(c.width, t.rowH, r.fit(c.header, c.width), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(t.rowH)
}

func (r *pdfRenderer) tableRow(t *pdfTable, cells []string, bg *rgb, bold bool) {
	pdf := r.pdf
	if pdf.GetY()+t.rowH > r.pageH-footerReserve {
		pdf.AddPage()
		r.tableHeader(t)
	}
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, t.fontSize)
	r.textColor(rgb{0, 0, 0})
	if bg != nil {
		r.fill(*bg)
	}
	pdf.SetX(pageMargin)
	for i, c := range t.columns {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		pdf.CellFormat(c.width, t.rowH, r.fit(text, c.width), "1", 0, c.align, bg != nil, 0, "")
	}
	pdf.Ln(t.rowH)
}

func (r *pdfRenderer) drawTable(t *pdfTable) {
	if t.fontSize == 0 {
		t.fontSize = 9
	}
	if t.rowH == 0 {
		t.rowH = 7
	}
	headerRows := 1.0
	if len(t.groups) > 0 {
		headerRows = 2
	}
	if r.pdf.GetY()+t.rowH*(headerRows+1) > r.pageH-footerReserve {
		r.pdf.AddPage()
	}
	r.tableHeader(t)
	for i, row := range t.rows {
		var bg *rgb
		if i%2 == 1 {
			bg = &colorAltRow
		}
		r.tableRow(t, row, bg, false)
	}
	if t.total != nil {
		r.tableRow(t, t.total, &colorTotalRow, true)
	}
	r.pdf.Ln(10)
}

// columns splits the usable width by the given fractions.
func (r *pdfRenderer) columns(headers []string, fractions []float64) []column {
	cols := make([]column, len(headers))
	for i, h := range headers {
		align := "R"
		if i == 0 || h == "Source" {
			align = "L"
		}
		cols[i] = column{header: h, width: r.usableWidth() * fractions[i], align: align}
	}
	return cols
}

func (r *pdfRenderer) populationSection(summaries []*VillageSummary) {
	r.startSection("1. Population Demographics")
	t := &pdfTable{
		columns: r.columns(
			[]string{"Village", "Total Population", "Male", "Female", "Source"},
			[]float64{0.30, 0.16, 0.14, 0.14, 0.26},
		),
	}
	for _, s := range summaries {
		d := s.Demographics
		t.rows = append(t.rows, []string{
			textOrDash(s.Village.NameEn),
			formatCount(d.TotalPopulation),
			formatCount(d.MalePopulation),
			formatCount(d.FemalePopulation),
			textOrDash(d.Source),
		})
	}
	tot := SumDemographics(summaries)
	t.total = []string{"TOTAL", formatCount(tot.Total), formatCount(tot.Male), formatCount(tot.Female), ""}
	r.drawTable(t)
}

func (r *pdfRenderer) categorySection(summaries []*VillageSummary) {
	r.startSection("2. Category-wise Population Breakdown")
	headers := []string{"Village"}
	fractions := []float64{0.22}
	groups := []headerGroup{{label: "", span: 1}}
	for _, c := range models.Categories {
		groups = append(groups, headerGroup{label: string(c), span: 3})
		headers = append(headers, "Male", "Female", "Total")
		fractions = append(fractions, 0.065, 0.065, 0.065)
	}
	t := &pdfTable{
		groups:   groups,
		columns:  r.columns(headers, fractions),
		fontSize: 7,
		rowH:     6,
	}
	for _, s := range summaries {
		row := []string{textOrDash(s.Village.NameEn)}
		for _, c := range models.Categories {
			b := breakdownFor(s, c)
			row = append(row, formatCount(b.MaleCount), formatCount(b.FemaleCount), formatCount(b.MaleCount+b.FemaleCount))
		}
		t.rows = append(t.rows, row)
	}
	t.total = []string{"TOTAL"}
	for _, ct := range SumCategories(summaries) {
		t.total = append(t.total, formatCount(ct.Male), formatCount(ct.Female), formatCount(ct.Total))
	}
	r.drawTable(t)
}

func (r *pdfRenderer) groupsSection(summaries []*VillageSummary) {
	r.startSection("3. Groups & Committees")
	t := &pdfTable{
		columns: r.columns(
			[]string{"Village", "Mahila Bachat Gat", "Yuvak Mandal", "Kisan Gat", "Other Groups", "Total"},
			[]float64{0.30, 0.15, 0.14, 0.13, 0.14, 0.14},
		),
	}
	for _, s := range summaries {
		g := s.Groups
		t.rows = append(t.rows, []string{
			textOrDash(s.Village.NameEn),
			formatCount(g.MahilaBachatGatCount),
			formatCount(g.YuvakMandalCount),
			formatCount(g.KisanGatCount),
			formatCount(g.OtherGroupCount),
			formatCount(g.Total()),
		})
	}
	tot := SumGroups(summaries)
	t.total = []string{"TOTAL", formatCount(tot.MahilaBachatGat), formatCount(tot.YuvakMandal), formatCount(tot.KisanGat), formatCount(tot.Other), formatCount(tot.Total)}
	r.drawTable(t)
}

func (r *pdfRenderer) infrastructureSection(summaries []*VillageSummary) {
	r.startSection("4. Water & Infrastructure")
	r.subheading("Water Supply Sources")

	const labelW, totalW, minVillageW, maxVillageW = 42.0, 24.0, 22.0, 40.0
	perChunk := int((r.usableWidth() - labelW - totalW) / minVillageW)
	if perChunk < 1 {
		perChunk = 1
	}
	rows := WaterSourceRows(summaries)
	for start := 0; start < len(summaries); start += perChunk {
		end := start + perChunk
		if end > len(summaries) {
			end = len(summaries)
		}
		last := end == len(summaries)
		villageW := (r.usableWidth() - labelW - totalW) / float64(end-start)
		if villageW > maxVillageW {
			villageW = maxVillageW
		}
		cols := []column{{header: "Source", width: labelW, align: "L"}}
		for _, s := range summaries[start:end] {
			cols = append(cols, column{header: textOrDash(s.Village.NameEn), width: villageW, align: "R"})
		}
		if last {
			cols = append(cols, column{header: "Total", width: totalW, align: "R"})
		}
		t := &pdfTable{columns: cols, fontSize: 8, rowH: 6}
		for _, row := range rows {
			cells := []string{row.Label}
			for i := start; i < end; i++ {
				if row.IsText {
					cells = append(cells, textOrDash(row.Texts[i]))
				} else {
					cells = append(cells, formatCount(row.Values[i]))
				}
			}
			if last {
				if row.IsText {
					cells = append(cells, "-")
				} else {
					cells = append(cells, formatCount(row.Total))
				}
			}
			t.rows = append(t.rows, cells)
		}
		r.drawTable(t)
	}

	r.subheading("Tap Connection Details")
	t := &pdfTable{
		columns: r.columns(
			[]string{"Village", "Families", "Old Connections", "New Connections", "Total Connections", "Private Wells", "Pending"},
			[]float64{0.25, 0.12, 0.13, 0.13, 0.13, 0.12, 0.12},
		),
	}
	for _, s := range summaries {
		in := s.Infrastructure
		t.rows = append(t.rows, []string{
			textOrDash(s.Village.NameEn),
			formatCount(in.Families),
			formatCount(in.OldTapConnections),
			formatCount(in.NewTapConnections),
			formatCount(in.TotalTapConnections),
			formatCount(in.PrivateWellsForTap),
			formatCount(in.PendingTapConnections),
		})
	}
	tot := SumTaps(summaries)
	t.total = []string{"TOTAL", formatCount(tot.Families), formatCount(tot.Old), formatCount(tot.New), formatCount(tot.Total), formatCount(tot.PrivateWells), formatCount(tot.Pending)}
	r.drawTable(t)
}
