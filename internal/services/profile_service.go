package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/medsync/internal/metrics"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/storage"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

// DocumentTypeKey is the form key carrying the type hint for the i-th document.
func DocumentTypeKey(i int) string {
	return fmt.Sprintf("type_%d", i)
}

type ProfileService struct {
	tx        repositories.Transactor
	accounts  repositories.AccountRepository
	documents repositories.DocumentRepository
	store     storage.ObjectStore
	logger    *zap.Logger
}

// ProfileUpdate is one PATCH request. Every part is optional.
type ProfileUpdate struct {
	ProfileJSON   string
	Avatar        *storage.File
	Documents     []storage.File
	DocumentTypes map[string]string
}

// profilePatch holds the editable fields. nil means absent.
type profilePatch struct {
	Name               *string `json:"name"`
	Phone              *string `json:"phone"`
	DOB                *string `json:"dob"`
	Address            *string `json:"address"`
	Gender             *string `json:"gender"`
	RemoveProfileImage *bool   `json:"removeProfileImage"`
}

func NewProfileService(
	tx repositories.Transactor,
	accounts repositories.AccountRepository,
	documents repositories.DocumentRepository,
	store storage.ObjectStore,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		tx:        tx,
		accounts:  accounts,
		documents: documents,
		store:     store,
		logger:    logger,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.ProfileView, error) {
	account, err := s.loadActive(ctx, accountID)
	if err != nil {
		return nil, err
	}

	documents, err := s.documents.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return models.NewProfileView(account, documents), nil
}

// UpdateProfile applies a partial profile edit plus optional avatar and
// document uploads. Blobs are uploaded first, then the account and document
// rows are written in one transaction. If anything fails, including a panic,
// every blob uploaded by this call is deleted once on a best-effort basis.
// Superseded avatars are only deleted after the commit.
//
// Compensation is not durable: a crash between upload and cleanup leaves
// orphaned objects in the store.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*models.ProfileView, error) {
	account, err := s.loadActive(ctx, accountID)
	if err != nil {
		metrics.ProfileUpdates.WithLabelValues(metrics.Outcome(err)).Inc()
		return nil, err
	}

	saga := newBlobSaga(s.store, s.logger)
	committed := false
	defer func() {
		if !committed {
			saga.compensate()
		}
	}()

	if err := s.apply(ctx, account, update, saga); err != nil {
		metrics.ProfileUpdates.WithLabelValues(metrics.Outcome(err)).Inc()
		s.logger.Warn("profile update failed",
			zap.String("account_id", accountID.String()),
			zap.Int("uploaded", len(saga.uploaded)),
			zap.Error(err),
		)
		return nil, err
	}
	committed = true
	metrics.ProfileUpdates.WithLabelValues(metrics.Outcome(nil)).Inc()

	saga.releaseSuperseded(ctx)

	return s.GetProfile(ctx, accountID)
}

func (s *ProfileService) apply(ctx context.Context, account *models.Account, update ProfileUpdate, saga *blobSaga) error {
	patch, err := parsePatch(update.ProfileJSON)
	if err != nil {
		return err
	}
	if err := patch.applyTo(account); err != nil {
		return err
	}

	if update.Avatar != nil && len(update.Avatar.Data) > 0 {
		policy := storage.AvatarPolicy
		if err := storage.Validate(update.Avatar, policy.AllowedTypes, policy.MaxBytes); err != nil {
			return err
		}
		url, err := saga.upload(ctx, *update.Avatar, path.Join(policy.Folder, account.ID.String()))
		if err != nil {
			return err
		}
		if account.ProfileImageURL != nil {
			saga.supersede(*account.ProfileImageURL)
		}
		account.ProfileImageURL = &url
	}

	if patch.RemoveProfileImage != nil && *patch.RemoveProfileImage && account.ProfileImageURL != nil {
		saga.supersede(*account.ProfileImageURL)
		account.ProfileImageURL = nil
	}

	documents, err := s.uploadDocuments(ctx, account.ID, update, saga)
	if err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Save(ctx, account); err != nil {
			return translate(err)
		}
		for _, document := range documents {
			if err := s.documents.Create(ctx, document); err != nil {
				return err
			}
		}
		return nil
	})
}

// uploadDocuments skips empty files; a missing or unknown type hint becomes OTHER.
func (s *ProfileService) uploadDocuments(ctx context.Context, accountID uuid.UUID, update ProfileUpdate, saga *blobSaga) ([]*models.Document, error) {
	policy := storage.DocumentPolicy
	destination := path.Join(policy.Folder, accountID.String())

	var documents []*models.Document
	for i := range update.Documents {
		file := &update.Documents[i]
		if len(file.Data) == 0 {
			continue
		}
		if err := storage.Validate(file, policy.AllowedTypes, policy.MaxBytes); err != nil {
			return nil, fmt.Errorf("%w (%s)", err, file.Name)
		}

		url, err := saga.upload(ctx, *file, destination)
		if err != nil {
			return nil, err
		}
		documents = append(documents, &models.Document{
			AccountID: accountID,
			Type:      models.ParseDocumentType(update.DocumentTypes[DocumentTypeKey(i)]),
			URL:       url,
			FileName:  file.Name,
			FileSize:  file.Size(),
		})
	}
	return documents, nil
}

func (s *ProfileService) loadActive(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, translate(err)
	}
	if account.Deleted {
		return nil, xerrors.ErrUserDeleted
	}
	return account, nil
}

func parsePatch(raw string) (*profilePatch, error) {
	patch := &profilePatch{}
	if strings.TrimSpace(raw) == "" {
		return patch, nil
	}
	if err := json.Unmarshal([]byte(raw), patch); err != nil {
		return nil, xerrors.ErrInvalidJSON
	}
	return patch, nil
}

// applyTo sets present, non-blank fields. Address is the exception: an empty
// string clears it.
func (p *profilePatch) applyTo(account *models.Account) error {
	if v, ok := nonBlank(p.Name); ok {
		account.Name = v
	}
	if v, ok := nonBlank(p.Phone); ok {
		account.Phone = &v
	}
	if v, ok := nonBlank(p.DOB); ok {
		dob, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return xerrors.ErrInvalidDate
		}
		account.DOB = &dob
	}
	if p.Address != nil {
		if v := strings.TrimSpace(*p.Address); v == "" {
			account.Address = nil
		} else {
			account.Address = &v
		}
	}
	if v, ok := nonBlank(p.Gender); ok {
		gender := models.Gender(strings.ToUpper(v))
		if !gender.Valid() {
			return fmt.Errorf("%w: unknown gender %q", xerrors.ErrInvalidJSON, v)
		}
		account.Gender = &gender
	}
	return nil
}

func nonBlank(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

const compensationTimeout = 30 * time.Second

// blobSaga tracks objects written and superseded during one profile update.
type blobSaga struct {
	store      storage.ObjectStore
	logger     *zap.Logger
	uploaded   []string
	superseded []string
}

func newBlobSaga(store storage.ObjectStore, logger *zap.Logger) *blobSaga {
	return &blobSaga{store: store, logger: logger}
}

func (b *blobSaga) upload(ctx context.Context, file storage.File, destination string) (string, error) {
	url, err := b.store.Upload(ctx, file, destination)
	if err != nil {
		if errors.Is(err, xerrors.ErrFileUploadFailed) {
			return "", err
		}
		b.logger.Error("object upload failed", zap.String("destination", destination), zap.Error(err))
		return "", xerrors.ErrFileUploadFailed
	}
	b.uploaded = append(b.uploaded, url)
	return url, nil
}

func (b *blobSaga) supersede(url string) {
	b.superseded = append(b.superseded, url)
}

// compensate deletes each object uploaded so far exactly once. It runs on a
// fresh context because the request context may already be cancelled.
func (b *blobSaga) compensate() {
	if len(b.uploaded) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	for _, url := range b.uploaded {
		if err := b.store.Delete(ctx, url); err != nil {
			metrics.CompensationDeletes.WithLabelValues("failed").Inc()
			b.logger.Error("failed to delete uploaded object during rollback",
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		metrics.CompensationDeletes.WithLabelValues("deleted").Inc()
		b.logger.Info("rolled back uploaded object", zap.String("url", url))
	}
}

// releaseSuperseded deletes avatars replaced or removed by a committed update.
// Failures leave an orphan and are logged only.
func (b *blobSaga) releaseSuperseded(ctx context.Context) {
	for _, url := range b.superseded {
		if err := b.store.Delete(context.WithoutCancel(ctx), url); err != nil {
			b.logger.Warn("failed to delete superseded object",
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}
}
