package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/spf13/cobra"
)

func printOrphans(w io.Writer, orphans []models.OrphanedRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tID\tVILLAGE\tYEAR")
	for _, o := range orphans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", o.Table, o.ID, o.VillageId, o.Year)
	}
	_ = tw.Flush()
}

func newOrphansCmd() *cobra.Command {
	var tenantId string
	orphans := &cobra.Command{
		Use:   "orphans",
		Short: "Find or purge statistics rows whose village was deleted",
	}
	orphans.PersistentFlags().StringVar(&tenantId, "tenant", "", "tenant id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List orphaned statistics rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := tenantContext(cmd, tenantId)
			if err != nil {
				return err
			}
			found, err := models.FindOrphanedStatistics(ctx)
			if err != nil {
				return err
			}
			printOrphans(cmd.OutOrStdout(), found)
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphaned rows\n", len(found))
			return nil
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete orphaned statistics rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := tenantContext(cmd, tenantId)
			if err != nil {
				return err
			}
			purged, err := models.PurgeOrphanedStatistics(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d orphaned rows\n", len(purged))
			return nil
		},
	}

	orphans.AddCommand(list, purge)
	return orphans
}
