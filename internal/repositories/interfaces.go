package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/medsync/internal/models"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	// GetByID also returns soft-deleted rows; callers check Account.Deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// CountCreatedSince counts every row for email, soft-deleted included.
	CountCreatedSince(ctx context.Context, email string, since time.Time) (int64, error)
	Save(ctx context.Context, account *models.Account) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Approve(ctx context.Context, id uuid.UUID) error
}

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *models.VerificationToken) error
	GetByToken(ctx context.Context, token string) (*models.VerificationToken, error)
	MarkUsed(ctx context.Context, token *models.VerificationToken) error
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
	DeleteAllForAccountExcept(ctx context.Context, accountID, keepID uuid.UUID) error
	CountIssuedSince(ctx context.Context, email string, since time.Time) (int64, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Document, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}
