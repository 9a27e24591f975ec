package main

import (
	"fmt"
	"os"

	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// readTenantFile loads a tenant definition; flags given on the command line win.
func readTenantFile(path string, input *models.NewGramPanchayat) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fromFile models.NewGramPanchayat
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&input.ID, fromFile.ID)
	fill(&input.Name, fromFile.Name)
	fill(&input.NameMr, fromFile.NameMr)
	fill(&input.Domain, fromFile.Domain)
	fill(&input.AdminEmail, fromFile.AdminEmail)
	fill(&input.AdminPassword, fromFile.AdminPassword)
	fill(&input.ContactPhone, fromFile.ContactPhone)
	return nil
}

func newTenantCmd() *cobra.Command {
	tenant := &cobra.Command{
		Use:   "tenant",
		Short: "Manage gram panchayats",
	}

	var file string
	var input models.NewGramPanchayat
	create := &cobra.Command{
		Use:   "create",
		Short: "Provision a gram panchayat with its admin account and the current year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				if err := readTenantFile(file, &input); err != nil {
					return err
				}
			}
			generated := false
			if input.AdminPassword == "" {
				pw, err := utils.GenerateSecurePassword(utils.DefaultPasswordLength)
				if err != nil {
					return err
				}
				input.AdminPassword = pw
				generated = true
			}
			gp, err := models.CreateGramPanchayat(cmd.Context(), &input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created gram panchayat %s (%s)\n", gp.ID, gp.Name)
			fmt.Fprintf(out, "admin: %s\n", gp.AdminEmail)
			if generated {
				fmt.Fprintf(out, "generated password: %s\n", input.AdminPassword)
			}
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&file, "file", "", "YAML file with the tenant definition")
	f.StringVar(&input.ID, "id", "", "tenant id (lowercase letters, digits, dashes)")
	f.StringVar(&input.Name, "name", "", "display name")
	f.StringVar(&input.NameMr, "name-mr", "", "Marathi display name")
	f.StringVar(&input.Domain, "domain", "", "public domain")
	f.StringVar(&input.AdminEmail, "admin-email", "", "admin login email")
	f.StringVar(&input.AdminPassword, "admin-password", "", "admin password; generated when empty")
	f.StringVar(&input.ContactPhone, "phone", "", "contact phone number")

	tenant.AddCommand(create)
	return tenant
}
