package main

import (
	"fmt"

	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Render village statistics reports",
	}

	var (
		tenantId    string
		year        int
		format      string
		title       string
		orientation string
		outDir      string
	)
	render := &cobra.Command{
		Use:   "render",
		Short: "Render a yearly report to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := tenantContext(cmd, tenantId)
			if err != nil {
				return err
			}
			var blobs reports.BlobReader
			if gcs, err := utils.NewGCSBlobStoreFromEnv(); err == nil {
				blobs = gcs
			}
			opts := reports.WithTenant(ctx, blobs, tenantId, reports.Options{
				Title:       title,
				Format:      reports.Format(format),
				Orientation: reports.Orientation(orientation),
			})
			doc, err := reports.Download(ctx, year, opts)
			if err != nil {
				return err
			}
			path, err := doc.SaveAs(outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(doc.Data))
			return nil
		},
	}
	f := render.Flags()
	f.StringVar(&tenantId, "tenant", "", "tenant id")
	f.IntVar(&year, "year", 0, "statistics year")
	f.StringVar(&format, "format", string(reports.FormatPDF), "pdf or xlsx")
	f.StringVar(&title, "title", "", "report title")
	f.StringVar(&orientation, "orientation", string(reports.Landscape), "landscape or portrait")
	f.StringVar(&outDir, "out", ".", "output directory")
	_ = render.MarkFlagRequired("year")

	report.AddCommand(render)
	return report
}
