// Package tenantpath maps logical entity names onto the document-store
// collections of the tenant carried in the request context.
package tenantpath

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grampanchayat/villagestats_backend/appctx"
)

type Entity string

const (
	Villages             Entity = "villages"
	Demographics         Entity = "demographics"
	PopulationBreakdowns Entity = "populationBreakdowns"
	VillageGroups        Entity = "villageGroups"
	Infrastructure       Entity = "infrastructure"
	StatisticsYears      Entity = "statisticsYears"
	Reports              Entity = "reports"
)

const (
	tenantsCollection = "gramPanchayats"
	adminsCollection  = "admins"
)

// ErrTenantMissing means the caller never resolved a tenant. It is a wiring
// bug, not bad user input.
var ErrTenantMissing = errors.New("tenant id missing from context")

var known = map[Entity]bool{
	Villages:             true,
	Demographics:         true,
	PopulationBreakdowns: true,
	VillageGroups:        true,
	Infrastructure:       true,
	StatisticsYears:      true,
	Reports:              true,
}

// StatisticsEntities are the four per-year tables keyed by village.
var StatisticsEntities = []Entity{Demographics, PopulationBreakdowns, VillageGroups, Infrastructure}

func (e Entity) Valid() bool { return known[e] }

// TenantFromContext returns the active tenant id.
func TenantFromContext(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrTenantMissing
	}
	id, ok := appctx.GetString(ctx, appctx.ContextKeyTenantId)
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", ErrTenantMissing
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid tenant id %q", id)
	}
	return id, nil
}

// Collection returns the collection path of entity for the tenant in ctx.
func Collection(ctx context.Context, entity Entity) (string, error) {
	if !entity.Valid() {
		return "", fmt.Errorf("unknown entity %q", entity)
	}
	tenant, err := TenantFromContext(ctx)
	if err != nil {
		return "", err
	}
	return TenantRoot(tenant) + "/" + string(entity), nil
}

// MustCollection is Collection for call sites where a missing tenant is a programming error.
func MustCollection(ctx context.Context, entity Entity) string {
	p, err := Collection(ctx, entity)
	if err != nil {
		panic(err)
	}
	return p
}

// Document returns the path of a single record of entity.
func Document(ctx context.Context, entity Entity, id string) (string, error) {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	c, err := Collection(ctx, entity)
	if err != nil {
		return "", err
	}
	return c + "/" + id, nil
}

// Tenants is the collection holding one root document per tenant.
func Tenants() string { return tenantsCollection }

// TenantRoot is the root document path of a tenant.
func TenantRoot(tenantId string) string { return tenantsCollection + "/" + tenantId }

// Admins is the collection of admin accounts; it sits outside every tenant.
func Admins() string { return adminsCollection }

// TenantOf extracts the tenant id from a document or collection path, or "".
func TenantOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == tenantsCollection {
		return parts[1]
	}
	return ""
}
