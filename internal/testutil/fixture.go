package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// ProductsSchema creates the table used across store and CLI tests.
const ProductsSchema = `
CREATE TABLE Products (
	ID          INTEGER PRIMARY KEY AUTOINCREMENT,
	CategoryID  INTEGER NOT NULL DEFAULT 0,
	SubCategory BOOLEAN NOT NULL DEFAULT 0,
	Name        TEXT,
	Price       CURRENCY,
	Added       DATETIME
);
`

// Product is a seed row for ProductsDB.
type Product struct {
	CategoryID  int
	SubCategory bool
	Name        string
	Price       string
}

// ProductsDB creates a database file holding the Products table in a
// per-test temp directory, inserts products, and returns the file path.
func ProductsDB(t *testing.T, products ...Product) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.db")
	ExecDB(t, path, ProductsSchema)
	for _, p := range products {
		ExecDB(t, path,
			"INSERT INTO Products (CategoryID, SubCategory, Name, Price) VALUES (?, ?, ?, ?)",
			p.CategoryID, p.SubCategory, p.Name, p.Price,
		)
	}
	return path
}

// ExecDB runs one statement against the database file at path, creating the
// file if needed. It bypasses the store so fixtures never depend on the code
// under test.
func ExecDB(t *testing.T, path, stmt string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("fixture statement failed: %v\n%s", err, stmt)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count rows in %s: %v", table, err)
	}
	return n
}
