package tenantpath_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grampanchayat/villagestats_backend/appctx"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func tenantCtx(id string) context.Context {
	return appctx.Set(context.Background(), appctx.ContextKeyTenantId, id)
}

func TestCollection_ScopesEveryEntityUnderTenant(t *testing.T) {
	ctx := tenantCtx("pune-gp")
	cases := []struct {
		entity   tenantpath.Entity
		expected string
	}{
		{tenantpath.Villages, "gramPanchayats/pune-gp/villages"},
		{tenantpath.Demographics, "gramPanchayats/pune-gp/demographics"},
		{tenantpath.PopulationBreakdowns, "gramPanchayats/pune-gp/populationBreakdowns"},
		{tenantpath.VillageGroups, "gramPanchayats/pune-gp/villageGroups"},
		{tenantpath.Infrastructure, "gramPanchayats/pune-gp/infrastructure"},
		{tenantpath.StatisticsYears, "gramPanchayats/pune-gp/statisticsYears"},
		{tenantpath.Reports, "gramPanchayats/pune-gp/reports"},
	}
	for _, tc := range cases {
		got, err := tenantpath.Collection(ctx, tc.entity)
		if err != nil {
			t.Fatalf("Collection(%s) error: %v", tc.entity, err)
		}
		if got != tc.expected {
			t.Fatalf("Collection(%s) expected %s, got %s", tc.entity, tc.expected, got)
		}
	}
}

func TestCollection_MissingTenantIsFatal(t *testing.T) {
	for _, ctx := range []context.Context{context.Background(), tenantCtx(""), tenantCtx("   ")} {
		_, err := tenantpath.Collection(ctx, tenantpath.Villages)
		if !errors.Is(err, tenantpath.ErrTenantMissing) {
			t.Fatalf("expected ErrTenantMissing, got %v", err)
		}
	}
}

func TestCollection_RejectsUnknownEntityAndBadTenant(t *testing.T) {
	if _, err := tenantpath.Collection(tenantCtx("gp"), tenantpath.Entity("notices")); err == nil {
		t.Fatalf("expected error for unknown entity")
	}
	if _, err := tenantpath.Collection(tenantCtx("a/b"), tenantpath.Villages); err == nil {
		t.Fatalf("expected error for tenant id containing a slash")
	}
}

func TestMustCollection_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic without tenant")
		}
	}()
	tenantpath.MustCollection(context.Background(), tenantpath.Villages)
}

func TestDocumentAndTenantOf(t *testing.T) {
	p, err := tenantpath.Document(tenantCtx("gp1"), tenantpath.Villages, "v1")
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if p != "gramPanchayats/gp1/villages/v1" {
		t.Fatalf("unexpected path %s", p)
	}
	if got := tenantpath.TenantOf(p); got != "gp1" {
		t.Fatalf("TenantOf expected gp1, got %s", got)
	}
	if got := tenantpath.TenantOf("admins/a@b.in"); got != "" {
		t.Fatalf("TenantOf expected empty for admins, got %s", got)
	}
	if _, err := tenantpath.Document(tenantCtx("gp1"), tenantpath.Villages, "a/b"); err == nil {
		t.Fatalf("expected error for id with slash")
	}
}
