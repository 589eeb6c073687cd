package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/medsync/internal/database"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/stretchr/testify/require"
)

// getTestPool connects to TEST_DATABASE_URL and applies the schema.
// Tests are skipped when it is not set.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool), "Failed to apply schema")
	return pool
}

func testEmail() string {
	return "test-" + uuid.New().String() + "@example.com"
}

// createTestAccount inserts an unverified patient and removes it with its
// dependents when the test ends.
func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, email string) *models.Account {
	t.Helper()

	account := &models.Account{
		Email:        email,
		PasswordHash: "test-hash",
		Name:         "Test User",
		Role:         models.RolePatient,
	}
	err := NewPostgresAccountRepository(pool).Create(ctx, account)
	require.NoError(t, err, "Failed to create test account")

	t.Cleanup(func() { cleanupTestData(t, pool, account.ID) })
	return account
}

// cleanupTestData hard-deletes an account and everything that references it.
func cleanupTestData(t *testing.T, pool *pgxpool.Pool, accountID uuid.UUID) {
	ctx := context.Background()
	for _, query := range []string{
		`DELETE FROM documents WHERE account_id = $1`,
		`DELETE FROM verification_tokens WHERE account_id = $1`,
		`DELETE FROM verification_token_issuances WHERE account_id = $1`,
		`DELETE FROM accounts WHERE id = $1`,
	} {
		if _, err := pool.Exec(ctx, query, accountID); err != nil {
			t.Logf("Warning: failed to cleanup test account: %v", err)
		}
	}
}
