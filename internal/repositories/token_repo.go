package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/medsync/internal/models"
)

type PostgresVerificationTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVerificationTokenRepository(pool *pgxpool.Pool) *PostgresVerificationTokenRepository {
	return &PostgresVerificationTokenRepository{pool: pool}
}

// Create inserts the token and appends to the issuance log in one statement.
// The log outlives token purges, which is what the resend limit counts.
func (r *PostgresVerificationTokenRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	query := `WITH t AS (
	              INSERT INTO verification_tokens (token, account_id, expiry_date)
	              VALUES ($1, $2, $3)
	              RETURNING id, account_id, used, version, created_at
	          ), l AS (
	              INSERT INTO verification_token_issuances (account_id, email, issued_at)
	              SELECT t.account_id, a.email, t.created_at
	              FROM t JOIN accounts a ON a.id = t.account_id
	          )
	          SELECT id, used, version, created_at FROM t`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		token.Token,
		token.AccountID,
		token.ExpiryDate,
	).Scan(&token.ID, &token.Used, &token.Version, &token.CreatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

func (r *PostgresVerificationTokenRepository) GetByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	query := `SELECT id, token, account_id, expiry_date, used, version, created_at
	          FROM verification_tokens
	          WHERE token = $1`

	var vt models.VerificationToken
	err := conn(ctx, r.pool).QueryRow(ctx, query, token).Scan(
		&vt.ID,
		&vt.Token,
		&vt.AccountID,
		&vt.ExpiryDate,
		&vt.Used,
		&vt.Version,
		&vt.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}
	return &vt, nil
}

// MarkUsed flips the used flag with optimistic locking on the token row, so two
// concurrent verifications of the same token cannot both succeed.
func (r *PostgresVerificationTokenRepository) MarkUsed(ctx context.Context, token *models.VerificationToken) error {
	query := `UPDATE verification_tokens
	          SET used = TRUE, version = version + 1
	          WHERE id = $1 AND version = $2
	          RETURNING version`

	var newVersion int64
	err := conn(ctx, r.pool).QueryRow(ctx, query, token.ID, token.Version).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to mark verification token used: %w", err)
	}

	token.Used = true
	token.Version = newVersion
	return nil
}

func (r *PostgresVerificationTokenRepository) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	query := `DELETE FROM verification_tokens WHERE account_id = $1`

	if _, err := conn(ctx, r.pool).Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to delete verification tokens: %w", err)
	}
	return nil
}

// DeleteAllForAccountExcept purges every token of the account but keepID.
func (r *PostgresVerificationTokenRepository) DeleteAllForAccountExcept(ctx context.Context, accountID, keepID uuid.UUID) error {
	query := `DELETE FROM verification_tokens WHERE account_id = $1 AND id <> $2`

	if _, err := conn(ctx, r.pool).Exec(ctx, query, accountID, keepID); err != nil {
		return fmt.Errorf("failed to delete verification tokens: %w", err)
	}
	return nil
}

func (r *PostgresVerificationTokenRepository) CountIssuedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM verification_token_issuances WHERE email = $1 AND issued_at > $2`

	var count int64
	if err := conn(ctx, r.pool).QueryRow(ctx, query, email, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count verification tokens: %w", err)
	}
	return count, nil
}
