package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

const DefaultTitle = "Village Statistics Report"

const (
	dispositionInline     = "inline"
	dispositionAttachment = "attachment"
)

type Options struct {
	Title             string
	TenantDisplayName string
	Orientation       Orientation
	Format            Format
	// Logo is optional image bytes drawn in the PDF header.
	Logo []byte
	Now  time.Time
}

func (o Options) withDefaults() (Options, error) {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = DefaultTitle
	}
	if strings.TrimSpace(o.TenantDisplayName) == "" {
		o.TenantDisplayName = "Gram Panchayat"
	}
	switch Orientation(strings.ToLower(string(o.Orientation))) {
	case "", Landscape:
		o.Orientation = Landscape
	case Portrait:
		o.Orientation = Portrait
	default:
		return o, utils.NewValidationError("orientation", "must be landscape or portrait")
	}
	switch Format(strings.ToLower(string(o.Format))) {
	case "", FormatPDF:
		o.Format = FormatPDF
	case FormatXLSX:
		o.Format = FormatXLSX
	default:
		return o, utils.NewValidationError("format", "must be pdf or xlsx")
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o, nil
}

// Document is a rendered report held in memory.
type Document struct {
	Year        int
	Title       string
	Format      Format
	FileName    string
	ContentType string
	Disposition string
	Data        []byte
	GeneratedAt time.Time
}

// FileName is Village_Statistics_<year>_<yyyyMMdd_HHmmss>.<ext>.
func FileName(year int, format Format, at time.Time) string {
	return fmt.Sprintf("Village_Statistics_%d_%s.%s", year, at.Format("20060102_150405"), format)
}

func contentType(f Format) string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

func (d *Document) Bytes() []byte { return d.Data }

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(d.Data).WriteTo(w)
}

// SaveAs writes the document into dir under its file name and returns the path.
func (d *Document) SaveAs(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.FileName)
	if err := os.WriteFile(path, d.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ContentDisposition is the header value for serving the document.
func (d *Document) ContentDisposition() string {
	disp := d.Disposition
	if disp == "" {
		disp = dispositionAttachment
	}
	return fmt.Sprintf("%s; filename=%q", disp, d.FileName)
}

// Render builds the yearly report. A tenant without villages gets a
// DataUnavailableError and no document; villages with all-zero figures
// are rendered as zeros.
func Render(ctx context.Context, year int, opts Options) (*Document, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.Render")
	defer span.End()

	summaries, err := Summarize(ctx, year)
	if err != nil {
		renderTotal.WithLabelValues(string(opts.Format), "error").Inc()
		return nil, err
	}
	if len(summaries) == 0 {
		renderTotal.WithLabelValues(string(opts.Format), "no_data").Inc()
		return nil, &utils.DataUnavailableError{Year: year}
	}

	var data []byte
	switch opts.Format {
	case FormatXLSX:
		data, err = renderXLSX(year, summaries, opts)
	default:
		data, err = renderPDF(year, summaries, opts)
	}
	if err != nil {
		renderTotal.WithLabelValues(string(opts.Format), "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("render %s report: %w", opts.Format, err)
	}
	renderTotal.WithLabelValues(string(opts.Format), "ok").Inc()
	return &Document{
		Year:        year,
		Title:       opts.Title,
		Format:      opts.Format,
		FileName:    FileName(year, opts.Format, opts.Now),
		ContentType: contentType(opts.Format),
		Disposition: dispositionAttachment,
		Data:        data,
		GeneratedAt: opts.Now,
	}, nil
}

// Preview renders the report for on-screen viewing.
func Preview(ctx context.Context, year int, opts Options) (*Document, error) {
	doc, err := Render(ctx, year, opts)
	if err != nil {
		return nil, err
	}
	doc.Disposition = dispositionInline
	return doc, nil
}

// Download renders the report for saving as a file.
func Download(ctx context.Context, year int, opts Options) (*Document, error) {
	return Render(ctx, year, opts)
}

// PublicSummary is the payload of the public statistics page.
type PublicSummary struct {
	Year     int               `json:"year"`
	Villages []*VillageSummary `json:"villages"`
	Totals   Totals            `json:"totals"`
}

// PublicStatistics summarises year for visitors. Unlike the admin view it
// treats an all-zero year as unavailable.
func PublicStatistics(ctx context.Context, year int) (*PublicSummary, error) {
	summaries, err := Summarize(ctx, year)
	if err != nil {
		return nil, err
	}
	if !HasData(summaries) {
		return nil, &utils.DataUnavailableError{Year: year}
	}
	return &PublicSummary{Year: year, Villages: summaries, Totals: ComputeTotals(summaries)}, nil
}

// WithTenant fills the tenant's display name and stored logo into opts.
// Lookup failures leave the defaults in place.
func WithTenant(ctx context.Context, blobs BlobReader, tenantId string, opts Options) Options {
	gp, err := models.GetGramPanchayat(ctx, tenantId)
	if err != nil {
		return opts
	}
	if strings.TrimSpace(opts.TenantDisplayName) == "" {
		opts.TenantDisplayName = gp.Name
	}
	if opts.Logo == nil && gp.LogoObjectKey != "" && blobs != nil {
		if data, err := blobs.Download(ctx, gp.LogoObjectKey, maxLogoBytes); err == nil {
			opts.Logo = data
		}
	}
	return opts
}
