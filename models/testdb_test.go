package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBusinessId = "biz-test"

// setupTestDB points the global DB at a fresh on-disk SQLite database and returns
// a request context for testBusinessId.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "backoffice.db") + "?_pragma=busy_timeout(5000)"
	conn, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	require.NoError(t, config.RegisterPlugins(conn))
	require.NoError(t, AutoMigrate(conn))

	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.SetDB(previous)
	})

	return tenantContext(testBusinessId)
}

func tenantContext(businessId string) context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	return utils.SetUserNameInContext(ctx, "site.manager")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func mustCreateClient(t *testing.T, ctx context.Context, name string) *Client {
	t.Helper()
	c, err := CreateClient(ctx, &NewClient{Name: name})
	require.NoError(t, err)
	return c
}

func mustCreateProject(t *testing.T, ctx context.Context, name string) *Project {
	t.Helper()
	p, err := CreateProject(ctx, &NewProject{Name: name})
	require.NoError(t, err)
	return p
}

func mustCreateQuote(t *testing.T, ctx context.Context, items []NewDocumentItem, discount string, clientIds ...int) *FinancialDocument {
	t.Helper()
	q, err := CreateFinancialDocument(ctx, DocumentKindQuote, &NewFinancialDocument{
		WorkType:  WorkTypeServiceMaterial,
		Discount:  dec(discount),
		ClientIds: clientIds,
		Items:     items,
	})
	require.NoError(t, err)
	return q
}

func mustCreateInventoryItem(t *testing.T, ctx context.Context, name string, qty string, cost string) *InventoryItem {
	t.Helper()
	q := dec(qty)
	item, err := CreateInventoryItem(ctx, &NewInventoryItem{Name: name, Unit: "pcs", Cost: dec(cost), Quantity: &q})
	require.NoError(t, err)
	return item
}

func reloadInventoryItem(t *testing.T, ctx context.Context, id int) *InventoryItem {
	t.Helper()
	item, err := GetInventoryItem(ctx, id)
	require.NoError(t, err)
	return item
}
