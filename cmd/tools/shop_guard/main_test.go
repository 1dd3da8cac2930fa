package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const scopedStore = "package customer\n\nfunc (s *pgStore) List() {\n\ts.db.Query(ctx, `SELECT `+customerColumns+` FROM customers\nWHERE ($1::bigint = 0 OR shop_id = $1)`, shopID)\n}\n"

const leakyStore = "package product\n\nfunc (s *pgStore) Get() {\n\ts.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1`, id)\n\ts.db.Exec(ctx, `DELETE FROM shops WHERE shop_id = $1`, id)\n}\n"

func writeStore(t *testing.T, dir, pkg, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, pkg), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pkg, "store.go"), []byte(src), 0o644))
}

func TestScanFlagsOnlyUnscopedStatements(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "customer", scopedStore)
	writeStore(t, dir, "product", leakyStore)

	violations, err := scan(dir)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Contains(t, violations[0], "FROM products WHERE product_id")
}

func TestUnscoped(t *testing.T) {
	require.False(t, unscoped("INSERT INTO invoices (shop_id) VALUES ($1)"))
	require.False(t, unscoped("SELECT product_name FROM invoice_items WHERE invoice_id = $1"))
	require.False(t, unscoped("UPDATE products SET name = $3 WHERE product_id = $2 AND ($1::bigint = 0 OR shop_id = $1)"))
	require.True(t, unscoped("\nDELETE FROM quotations WHERE quotation_id = $1"))
}

func TestRepositoryStoresAreScoped(t *testing.T) {
	violations, err := scan(filepath.Join("..", "..", "..", "internal"))
	require.NoError(t, err)
	require.Empty(t, violations)
}
