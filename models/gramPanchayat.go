package models

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

var tenantIdPattern = regexp.MustCompile(`^[a-z0-9-]{3,40}$`)

// GramPanchayat is the root document of a tenant.
type GramPanchayat struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	NameMr        string     `json:"nameMr,omitempty"`
	Domain        string     `json:"domain"`
	AdminEmail    string     `json:"adminEmail"`
	ContactPhone  string     `json:"contactPhone,omitempty"`
	LogoObjectKey string     `json:"logoObjectKey,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type NewGramPanchayat struct {
	ID            string `json:"id" yaml:"id" validate:"required"`
	Name          string `json:"name" yaml:"name" validate:"notblank"`
	NameMr        string `json:"nameMr" yaml:"nameMr"`
	Domain        string `json:"domain" yaml:"domain" validate:"required,fqdn"`
	AdminEmail    string `json:"adminEmail" yaml:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" yaml:"adminPassword" validate:"required,min=8"`
	ContactPhone  string `json:"contactPhone" yaml:"contactPhone"`
}

// ValidTenantId reports whether id can name a gram panchayat.
func ValidTenantId(id string) bool { return tenantIdPattern.MatchString(id) }

func (input *NewGramPanchayat) validate() error {
	input.ID = strings.ToLower(strings.TrimSpace(input.ID))
	input.Domain = strings.ToLower(strings.TrimSpace(input.Domain))
	input.AdminEmail = strings.ToLower(strings.TrimSpace(input.AdminEmail))
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !tenantIdPattern.MatchString(input.ID) {
		return utils.NewValidationError("id", "must be 3 to 40 lowercase letters, digits or dashes")
	}
	if phone := strings.TrimSpace(input.ContactPhone); phone != "" {
		normalized, err := utils.NormalizePhoneNumber(phone, "IN")
		if err != nil {
			return utils.NewValidationError("contactPhone", "is not a valid phone number")
		}
		input.ContactPhone = normalized
	}
	return nil
}

// CreateGramPanchayat provisions a tenant: its root document, an admin
// account and the current calendar year.
func CreateGramPanchayat(ctx context.Context, input *NewGramPanchayat) (*GramPanchayat, error) {
	if input == nil {
		return nil, utils.NewValidationError("gramPanchayat", "is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	release, err := utils.TenantLock(ctx, input.ID, "Provision", "Models", "CreateGramPanchayat")
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := getStore()
	if err != nil {
		return nil, err
	}
	root := tenantpath.TenantRoot(input.ID)
	existing, err := s.Get(ctx, root)
	if err != nil {
		return nil, utils.WrapStoreError("get tenant", err)
	}
	if existing != nil {
		return nil, utils.NewValidationError("id", "gram panchayat %q already exists", input.ID)
	}

	data := docstore.Record{
		"name":       strings.TrimSpace(input.Name),
		"nameMr":     strings.TrimSpace(input.NameMr),
		"domain":     input.Domain,
		"adminEmail": input.AdminEmail,
		"isActive":   true,
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
	}
	if input.ContactPhone != "" {
		data["contactPhone"] = input.ContactPhone
	}
	if err := s.Set(ctx, root, data); err != nil {
		return nil, utils.WrapStoreError("create tenant", err)
	}

	if _, err := UpsertAdminAccount(ctx, &NewAdminAccount{
		Email:    input.AdminEmail,
		Name:     strings.TrimSpace(input.Name) + " Admin",
		Password: input.AdminPassword,
		TenantId: input.ID,
		Role:     RoleAdmin,
	}); err != nil {
		return nil, err
	}

	tenantCtx := utils.SetTenantIdInContext(ctx, input.ID)
	if err := ensureYear(tenantCtx, time.Now().Year()); err != nil {
		return nil, err
	}
	return GetGramPanchayat(ctx, input.ID)
}

func GetGramPanchayat(ctx context.Context, id string) (*GramPanchayat, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return nil, utils.NewNotFoundError("gramPanchayat", id)
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	gp, err := getDocument[GramPanchayat](ctx, s, tenantpath.TenantRoot(id), "get tenant")
	if err != nil {
		return nil, err
	}
	if gp == nil {
		return nil, utils.NewNotFoundError("gramPanchayat", id)
	}
	return gp, nil
}

func SetGramPanchayatLogo(ctx context.Context, id string, objectKey string) error {
	if _, err := GetGramPanchayat(ctx, id); err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	err = s.Update(ctx, tenantpath.TenantRoot(id), docstore.Record{
		"logoObjectKey": objectKey,
		"updatedAt":     docstore.ServerTimestamp,
	})
	return utils.WrapStoreError("update tenant logo", err)
}
