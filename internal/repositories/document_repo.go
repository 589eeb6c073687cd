package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/medsync/internal/models"
)

type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDocumentRepository(pool *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

func (r *PostgresDocumentRepository) Create(ctx context.Context, document *models.Document) error {
	query := `INSERT INTO documents (account_id, type, url, file_name, file_size)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, version, created_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		document.AccountID,
		string(document.Type),
		document.URL,
		document.FileName,
		document.FileSize,
	).Scan(&document.ID, &document.Version, &document.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Document, error) {
	query := `SELECT id, account_id, type, url, file_name, file_size, version, created_at
	          FROM documents
	          WHERE account_id = $1
	          ORDER BY created_at ASC, id ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	documents := []*models.Document{}
	for rows.Next() {
		var (
			document models.Document
			docType  string
		)
		err := rows.Scan(
			&document.ID,
			&document.AccountID,
			&docType,
			&document.URL,
			&document.FileName,
			&document.FileSize,
			&document.Version,
			&document.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		document.Type = models.DocumentType(docType)
		documents = append(documents, &document)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

func (r *PostgresDocumentRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1 AND account_id = $2`

	result, err := conn(ctx, r.pool).Exec(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
