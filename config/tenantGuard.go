package config

import (
	"context"
	"reflect"
	"strings"

	"github.com/sitebooks/backoffice/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tenantColumn = "business_id"

// TenantGuardPlugin scopes queries, updates and deletes to the request's business_id
// whenever the model has a business_id column, and stamps business_id on inserts
// that left it blank.
//
// Raw SQL is not covered; those queries must filter business_id themselves.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant_guard:query", scopeToTenant); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant_guard:row", scopeToTenant); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant_guard:update", scopeToTenant); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", scopeToTenant); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant_guard:create", stampTenant)
}

func tenantFor(db *gorm.DB) (string, bool) {
	if db == nil || db.Statement == nil || db.Statement.Schema == nil {
		return "", false
	}
	ctx := db.Statement.Context
	if ctx == nil || bypassTenantScope(ctx) {
		return "", false
	}
	businessID, _ := appctx.BusinessId(ctx)
	if businessID == "" {
		return "", false
	}
	if db.Statement.Schema.LookUpField(tenantColumn) == nil {
		return "", false
	}
	return businessID, true
}

func scopeToTenant(db *gorm.DB) {
	businessID, ok := tenantFor(db)
	if !ok {
		return
	}
	if whereMentionsTenant(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: tenantColumn},
				Value:  businessID,
			},
		},
	})
}

func stampTenant(db *gorm.DB) {
	businessID, ok := tenantFor(db)
	if !ok {
		return
	}
	field := db.Statement.Schema.LookUpField(tenantColumn)
	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			setTenantIfBlank(db.Statement.Context, field.Set, field.ValueOf, rv.Index(i), businessID)
		}
	case reflect.Struct:
		setTenantIfBlank(db.Statement.Context, field.Set, field.ValueOf, rv, businessID)
	}
}

func setTenantIfBlank(
	ctx context.Context,
	set func(context.Context, reflect.Value, interface{}) error,
	valueOf func(context.Context, reflect.Value) (interface{}, bool),
	rv reflect.Value,
	businessID string,
) {
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if _, zero := valueOf(ctx, rv); zero {
		_ = set(ctx, rv, businessID)
	}
}

func bypassTenantScope(ctx context.Context) bool {
	return appctx.SkipsTenantScope(ctx)
}

func whereMentionsTenant(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprMentionsTenant(e) {
			return true
		}
	}
	return false
}

func exprMentionsTenant(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isTenantColumn(v.Column)
	case clause.Neq:
		return isTenantColumn(v.Column)
	case clause.IN:
		return isTenantColumn(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprMentionsTenant(x) {
				return true
			}
		}
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprMentionsTenant(x) {
				return true
			}
		}
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), tenantColumn)
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), tenantColumn)
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, tenantColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, tenantColumn)
	}
	return false
}
