// gpadmin is the operator CLI for provisioning gram panchayats and running
// maintenance against the document store.
//
// Usage:
//
//	STORE_BACKEND=badger BADGER_PATH=./data/badger go run ./cmd/gpadmin tenant create --file tenant.yaml
//	go run ./cmd/gpadmin years add --tenant wagholi --year 2025
//	go run ./cmd/gpadmin orphans purge --tenant wagholi
//	go run ./cmd/gpadmin report render --tenant wagholi --year 2025 --format xlsx --out ./out
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/grampanchayat/villagestats_backend/workflow"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opened bool
	root := &cobra.Command{
		Use:           "gpadmin",
		Short:         "Provision gram panchayats and maintain village statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if config.GetDocStore() != nil {
				return nil
			}
			if err := config.ConnectDocStore(); err != nil {
				return fmt.Errorf("open document store: %w", err)
			}
			opened = true
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if err := workflow.WaitForEvents(cmd.Context()); err != nil {
				return err
			}
			if opened {
				config.CloseDocStore()
			}
			return nil
		},
	}
	root.SetContext(context.Background())
	root.AddCommand(newTenantCmd(), newYearsCmd(), newOrphansCmd(), newReportCmd())
	return root
}

// tenantContext scopes ctx to the --tenant flag after checking the tenant exists.
func tenantContext(cmd *cobra.Command, tenantId string) (context.Context, error) {
	tenantId = strings.ToLower(strings.TrimSpace(tenantId))
	if tenantId == "" {
		return nil, fmt.Errorf("--tenant is required")
	}
	ctx := cmd.Context()
	if _, err := models.GetGramPanchayat(ctx, tenantId); err != nil {
		return nil, err
	}
	ctx = utils.SetTenantIdInContext(ctx, tenantId)
	ctx = utils.SetUsernameInContext(ctx, "gpadmin")
	return ctx, nil
}
