package config

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/grampanchayat/villagestats_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrCrossTenantWrite is returned when a request scoped to one gram panchayat
// tries to insert a document owned by another.
var ErrCrossTenantWrite = errors.New("tenant guard: document belongs to another gram panchayat")

// TenantGuardPlugin scopes every documents query made under a tenant context
// to rows with that tenant_id, and rejects inserts of rows owned by another
// tenant. Rows outside every tenant (admin accounts) are invisible to tenant
// requests.
//
// Raw SQL is not scoped. Super admins and internal jobs bypass the guard
// through context flags; requests without a tenant (login, provisioning) are
// not scoped.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return db.Callback().Create().Before("gorm:create").Register("tenant_guard:create", tenantCreateGuard)
}

// scopedTenant returns the tenant the statement must be limited to, or "".
func scopedTenant(db *gorm.DB) (string, *schema.Field) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil || db.Statement.Schema == nil {
		return "", nil
	}
	ctx := db.Statement.Context
	if shouldBypassTenantScope(ctx) {
		return "", nil
	}
	tenantID := tenantIdFromContext(ctx)
	if tenantID == "" {
		return "", nil
	}
	field := db.Statement.Schema.LookUpField("tenant_id")
	if field == nil {
		return "", nil
	}
	return tenantID, field
}

func tenantGuardCallback(db *gorm.DB) {
	tenantID, field := scopedTenant(db)
	if field == nil {
		return
	}
	if whereHasTenantID(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: field.DBName},
				Value:  tenantID,
			},
		},
	})
}

func tenantCreateGuard(db *gorm.DB) {
	tenantID, field := scopedTenant(db)
	if field == nil {
		return
	}
	rv := reflect.Indirect(db.Statement.ReflectValue)
	check := func(v reflect.Value) {
		owner, _ := field.ValueOf(db.Statement.Context, v)
		if s, ok := owner.(string); ok && s != "" && s != tenantID {
			_ = db.AddError(ErrCrossTenantWrite)
		}
	}
	switch rv.Kind() {
	case reflect.Struct:
		check(rv)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			check(reflect.Indirect(rv.Index(i)))
		}
	}
}

func tenantIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyTenantId).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && v {
		return true
	}
	if v, ok := ctx.Value(appctx.ContextKeyIsSuperAdmin).(bool); ok && v {
		return true
	}
	return false
}

func whereHasTenantID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasTenantID(e) {
			return true
		}
	}
	return false
}

func exprHasTenantID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsTenantID(v.Column)
	case clause.Neq:
		return colIsTenantID(v.Column)
	case clause.IN:
		return colIsTenantID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasTenantID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasTenantID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "tenant_id")
	default:
		return false
	}
}

func colIsTenantID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "tenant_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "tenant_id")
	default:
		return false
	}
}
