// seed-admin creates or updates the platform super-admin account.
// Super admins are not bound to a gram panchayat and select one per request
// with the x-tenant-id header.
//
// Usage (from backend directory):
//
//	SUPERADMIN_EMAIL=... SUPERADMIN_PASSWORD=... STORE_BACKEND=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
)

const adminName = "Platform Admin"

func main() {
	email := strings.TrimSpace(os.Getenv("SUPERADMIN_EMAIL"))
	password := os.Getenv("SUPERADMIN_PASSWORD")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD must be set.")
		os.Exit(2)
	}

	if err := config.ConnectDocStore(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open document store: %v\n", err)
		os.Exit(1)
	}

	ctx := utils.SetUsernameInContext(context.Background(), "seed-admin")
	account, err := models.UpsertAdminAccount(ctx, &models.NewAdminAccount{
		Email:    email,
		Name:     adminName,
		Password: password,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to save super admin: %v\n", err)
		config.CloseDocStore()
		os.Exit(1)
	}
	config.CloseDocStore()
	fmt.Printf("Saved super admin: email=%q role=%s\n", account.Email, account.Role)
}
