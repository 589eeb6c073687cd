package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/storage"
	"github.com/stretchr/testify/mock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type issuance struct {
	email string
	at    time.Time
}

// memStore backs the in-memory repositories. WithinTx snapshots the whole
// store and restores it when fn fails, which is enough to observe rollbacks.
type memStore struct {
	mu        sync.Mutex
	clock     *fakeClock
	accounts  map[uuid.UUID]models.Account
	tokens    map[string]models.VerificationToken
	issuances []issuance
	documents []models.Document

	// failure injection
	saveErr        error
	createTokenErr error
	createDocErr   error
	hideExisting   bool
}

func newMemStore(clock *fakeClock) *memStore {
	return &memStore{
		clock:    clock,
		accounts: make(map[uuid.UUID]models.Account),
		tokens:   make(map[string]models.VerificationToken),
	}
}

type memSnapshot struct {
	accounts  map[uuid.UUID]models.Account
	tokens    map[string]models.VerificationToken
	issuances []issuance
	documents []models.Document
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		accounts:  make(map[uuid.UUID]models.Account, len(s.accounts)),
		tokens:    make(map[string]models.VerificationToken, len(s.tokens)),
		issuances: append([]issuance(nil), s.issuances...),
		documents: append([]models.Document(nil), s.documents...),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.tokens {
		snap.tokens[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.tokens = snap.tokens
	s.issuances = snap.issuances
	s.documents = snap.documents
}

type memTxKey struct{}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// account returns the stored copy for assertions.
func (s *memStore) account(id uuid.UUID) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memStore) accountCount(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.accounts {
		if a.Email == email {
			n++
		}
	}
	return n
}

// activeTokens counts unused, unexpired tokens of an account.
func (s *memStore) activeTokens(accountID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.AccountID == accountID && !t.Used && !t.Expired(s.clock.Now()) {
			n++
		}
	}
	return n
}

func (s *memStore) softDelete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]
	a.Deleted = true
	a.Version++
	s.accounts[id] = a
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == account.Email && !a.Deleted {
			return repositories.ErrDuplicate
		}
	}
	account.ID = uuid.New()
	account.Version = 1
	account.CreatedAt = r.s.clock.Now()
	r.s.accounts[account.ID] = *account
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == email && !a.Deleted {
			return &a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r memAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.s.hideExisting {
		return false, nil
	}
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r memAccounts) CountCreatedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.accounts {
		if a.Email == email && a.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r memAccounts) Save(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	stored, ok := r.s.accounts[account.ID]
	if !ok || stored.Version != account.Version {
		return repositories.ErrVersionConflict
	}
	now := r.s.clock.Now()
	account.Version++
	account.UpdatedAt = &now
	r.s.accounts[account.ID] = *account
	return nil
}

func (r memAccounts) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	r.s.softDelete(id)
	return nil
}

func (r memAccounts) Approve(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.Deleted || !a.EmailVerified {
		return repositories.ErrNotFound
	}
	a.Approved = true
	a.Version++
	r.s.accounts[id] = a
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, token *models.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createTokenErr != nil {
		return r.s.createTokenErr
	}
	if _, ok := r.s.tokens[token.Token]; ok {
		return repositories.ErrDuplicate
	}
	token.ID = uuid.New()
	token.Version = 1
	token.CreatedAt = r.s.clock.Now()
	r.s.tokens[token.Token] = *token
	r.s.issuances = append(r.s.issuances, issuance{
		email: r.s.accounts[token.AccountID].Email,
		at:    token.CreatedAt,
	})
	return nil
}

func (r memTokens) GetByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r memTokens) MarkUsed(ctx context.Context, token *models.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tokens[token.Token]
	if !ok || stored.Version != token.Version {
		return repositories.ErrVersionConflict
	}
	token.Used = true
	token.Version++
	r.s.tokens[token.Token] = *token
	return nil
}

func (r memTokens) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.DeleteAllForAccountExcept(ctx, accountID, uuid.Nil)
}

func (r memTokens) DeleteAllForAccountExcept(ctx context.Context, accountID, keepID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.tokens {
		if t.AccountID == accountID && t.ID != keepID {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

func (r memTokens) CountIssuedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, i := range r.s.issuances {
		if i.email == email && i.at.After(since) {
			n++
		}
	}
	return n, nil
}

type memDocuments struct{ s *memStore }

func (r memDocuments) Create(ctx context.Context, document *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createDocErr != nil {
		return r.s.createDocErr
	}
	document.ID = uuid.New()
	document.Version = 1
	document.CreatedAt = r.s.clock.Now()
	r.s.documents = append(r.s.documents, *document)
	return nil
}

func (r memDocuments) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Document{}
	for i := range r.s.documents {
		if r.s.documents[i].AccountID == accountID {
			d := r.s.documents[i]
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r memDocuments) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, d := range r.s.documents {
		if d.ID == id && d.AccountID == accountID {
			r.s.documents = append(r.s.documents[:i], r.s.documents[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

// recordingSender captures verification links instead of mailing them.
type recordingSender struct {
	mu    sync.Mutex
	sent  []sentLink
	fails bool
}

type sentLink struct {
	email string
	token string
}

func (s *recordingSender) SendVerificationLink(ctx context.Context, email, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentLink{email: email, token: token})
	if s.fails {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *recordingSender) last() sentLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentLink{}
	}
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(ctx context.Context, file storage.File, destination string) (string, error) {
	args := m.Called(ctx, file, destination)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}
