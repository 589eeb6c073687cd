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

const accountColumns = `id, email, password_hash, name, role, approved, email_verified, deleted,
	phone, dob, address, gender, profile_image_url, version, created_at, updated_at`

type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (email, password_hash, name, role, approved, email_verified)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, version, created_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Name,
		string(account.Role),
		account.Approved,
		account.EmailVerified,
	).Scan(&account.ID, &account.Version, &account.CreatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND NOT deleted`

	account, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1 AND NOT deleted)`

	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account email: %w", err)
	}
	return exists, nil
}

// CountCreatedSince deliberately ignores the deleted flag so that deleting and
// re-registering does not reset the spam window.
func (r *PostgresAccountRepository) CountCreatedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE email = $1 AND created_at > $2`

	var count int64
	if err := conn(ctx, r.pool).QueryRow(ctx, query, email, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// Save writes every mutable column with optimistic locking. account.Version must
// hold the version that was read; on success it is bumped and UpdatedAt stamped.
func (r *PostgresAccountRepository) Save(ctx context.Context, account *models.Account) error {
	var gender *string
	if account.Gender != nil {
		g := string(*account.Gender)
		gender = &g
	}

	query := `UPDATE accounts
	          SET name = $1,
	              approved = $2,
	              email_verified = $3,
	              phone = $4,
	              dob = $5,
	              address = $6,
	              gender = $7,
	              profile_image_url = $8,
	              version = version + 1,
	              updated_at = NOW()
	          WHERE id = $9 AND version = $10
	          RETURNING version, updated_at`

	var (
		newVersion int64
		updatedAt  time.Time
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		account.Name,
		account.Approved,
		account.EmailVerified,
		account.Phone,
		account.DOB,
		account.Address,
		gender,
		account.ProfileImageURL,
		account.ID,
		account.Version,
	).Scan(&newVersion, &updatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	account.Version = newVersion
	account.UpdatedAt = &updatedAt
	return nil
}

func (r *PostgresAccountRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts
	          SET deleted = TRUE, version = version + 1, updated_at = NOW()
	          WHERE id = $1 AND NOT deleted`

	result, err := conn(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve is the external approval hook for roles that are not auto-approved.
// Unverified accounts are never approved.
func (r *PostgresAccountRepository) Approve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts
	          SET approved = TRUE, version = version + 1, updated_at = NOW()
	          WHERE id = $1 AND email_verified AND NOT deleted`

	result, err := conn(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to approve account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account models.Account
		role    string
		gender  *string
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&role,
		&account.Approved,
		&account.EmailVerified,
		&account.Deleted,
		&account.Phone,
		&account.DOB,
		&account.Address,
		&gender,
		&account.ProfileImageURL,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = models.Role(role)
	if gender != nil {
		g := models.Gender(*gender)
		account.Gender = &g
	}
	return &account, nil
}
