package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("user is disabled")
)

type AdminAccount struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"passwordHash"`
	TenantId     string     `json:"tenantId"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type NewAdminAccount struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" validate:"required,min=8"`
	TenantId string `json:"tenantId"`
	Role     string `json:"role" validate:"oneof=admin superadmin"`
}

// adminScope lets admin-account reads and writes through the tenant guard;
// accounts live outside every tenant.
func adminScope(ctx context.Context) context.Context {
	return utils.SetSkipTenantScopeInContext(ctx, true)
}

func adminPath(email string) string {
	return docstore.Join(tenantpath.Admins(), strings.ToLower(strings.TrimSpace(email)))
}

// UpsertAdminAccount creates the account or resets its password, role and tenant.
func UpsertAdminAccount(ctx context.Context, input *NewAdminAccount) (*AdminAccount, error) {
	ctx = adminScope(ctx)
	if input == nil {
		return nil, utils.NewValidationError("admin", "is required")
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Role == RoleAdmin && strings.TrimSpace(input.TenantId) == "" {
		return nil, utils.NewValidationError("tenantId", "is required for tenant admins")
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	path := adminPath(input.Email)
	existing, err := s.Get(ctx, path)
	if err != nil {
		return nil, utils.WrapStoreError("get admin", err)
	}
	data := docstore.Record{
		"email":        input.Email,
		"name":         strings.TrimSpace(input.Name),
		"passwordHash": string(hashed),
		"tenantId":     input.TenantId,
		"role":         input.Role,
		"isActive":     true,
		"updatedAt":    docstore.ServerTimestamp,
	}
	if existing == nil {
		data["createdAt"] = docstore.ServerTimestamp
		err = s.Set(ctx, path, data)
	} else {
		err = s.Update(ctx, path, data)
	}
	if err != nil {
		return nil, utils.WrapStoreError("save admin", err)
	}
	return getDocument[AdminAccount](ctx, s, path, "get admin")
}

// Authenticate returns the account when password matches. Unknown emails and
// wrong passwords give the same error.
func Authenticate(ctx context.Context, email string, password string) (*AdminAccount, error) {
	ctx = adminScope(ctx)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.Contains(email, "/") || password == "" {
		return nil, ErrInvalidCredentials
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	account, err := getDocument[AdminAccount](ctx, s, adminPath(email), "get admin")
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := utils.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrAccountDisabled
	}
	return account, nil
}
