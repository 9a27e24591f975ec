package main

import (
	"fmt"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/spf13/cobra"
)

func newYearsCmd() *cobra.Command {
	var tenantId string
	years := &cobra.Command{
		Use:   "years",
		Short: "Manage the statistics years of a gram panchayat",
	}
	years.PersistentFlags().StringVar(&tenantId, "tenant", "", "tenant id")

	var year int
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a statistics year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := tenantContext(cmd, tenantId)
			if err != nil {
				return err
			}
			y, err := models.AddYear(ctx, year)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added year %d\n", y.Year)
			return nil
		},
	}
	add.Flags().IntVar(&year, "year", 0, "calendar year")
	_ = add.MarkFlagRequired("year")

	list := &cobra.Command{
		Use:   "list",
		Short: "List statistics years, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := tenantContext(cmd, tenantId)
			if err != nil {
				return err
			}
			ys, err := models.ListYears(ctx)
			if err != nil {
				return err
			}
			for _, y := range ys {
				fmt.Fprintln(cmd.OutOrStdout(), y)
			}
			return nil
		},
	}

	years.AddCommand(add, list)
	return years
}
