package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDatabaseURLEnv names the variable integration tests read.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// Tables lists every table, children before parents.
var Tables = []string{
	"expenses",
	"user_managed_departments",
	"users",
	"subcategories",
	"categories",
	"departments",
	"suppliers",
	"credit_cards",
}

func testURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", TestDatabaseURLEnv)
	}
	return url
}

// TestDB opens a private pool for t and closes it on cleanup.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := Connect(context.Background(), testURL(t))
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

var shared struct {
	once sync.Once
	pool *pgxpool.Pool
	err  error
}

// TestPool returns the migrated pool shared by every test in the binary.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := testURL(t)
	shared.once.Do(func() {
		ctx := context.Background()
		if shared.pool, shared.err = Connect(ctx, url); shared.err != nil {
			return
		}
		shared.err = RunMigrations(ctx, shared.pool)
	})
	if shared.err != nil {
		t.Fatalf("prepare shared test database: %v", shared.err)
	}
	return shared.pool
}

// TestTx begins a transaction on the shared pool and rolls it back when t
// finishes. Repositories built on it see only their own test's rows.
//
//	repo := repository.NewExpenseRepository(database.TestTx(t))
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin test transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}
