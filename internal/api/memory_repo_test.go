package api

import (
	"context"
	"sync"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
	"github.com/google/uuid"
)

// memoryRepo is a minimal in-memory store.Repository for handler tests.
type memoryRepo struct {
	mu       sync.Mutex
	athletes map[string]*domain.Athlete
	admins   map[string]*domain.Admin
	txs      map[uuid.UUID]*domain.Transaction
	states   []domain.MachineState
	audits   []domain.AuditEntry
}

var _ store.Repository = (*memoryRepo)(nil)

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		athletes: make(map[string]*domain.Athlete),
		admins:   make(map[string]*domain.Admin),
		txs:      make(map[uuid.UUID]*domain.Transaction),
	}
}

func (m *memoryRepo) put(a *domain.Athlete) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.athletes[a.IDNumber] = a
}

func (m *memoryRepo) athlete(idNumber string) domain.Athlete {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.athletes[idNumber]
}

func (m *memoryRepo) FindAthleteByIDNumber(ctx context.Context, idNumber string) (*domain.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.athletes[idNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memoryRepo) CreateAthlete(ctx context.Context, athlete *domain.Athlete) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.athletes[athlete.IDNumber]; ok {
		return store.ErrAthleteExists
	}
	athlete.FirstLoginPending = true
	clone := *athlete
	m.athletes[athlete.IDNumber] = &clone
	return nil
}

func (m *memoryRepo) CompleteOnboarding(ctx context.Context, params store.OnboardingParams) (*domain.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.athletes[params.IDNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	if !a.FirstLoginPending {
		return nil, store.ErrAthleteNotPending
	}
	hash := params.CredentialHash
	answers := params.SecurityAnswers
	a.FirstName, a.LastName = params.FirstName, params.LastName
	a.CredentialHash = &hash
	a.SecurityAnswers = &answers
	a.FirstLoginPending = false
	clone := *a
	return &clone, nil
}

func (m *memoryRepo) UpdateCredential(ctx context.Context, idNumber string, credentialHash string) (*domain.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.athletes[idNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	a.CredentialHash = &credentialHash
	a.FirstLoginPending = false
	clone := *a
	return &clone, nil
}

func (m *memoryRepo) MarkResetBlocked(ctx context.Context, idNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.athletes[idNumber]
	if !ok {
		return store.ErrAthleteNotFound
	}
	a.ResetBlocked = true
	return nil
}

func (m *memoryRepo) ApplyPinReset(ctx context.Context, idNumber string, credentialHash string, maxResets int, at time.Time) (*domain.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.athletes[idNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	if a.ResetCount >= maxResets || a.ResetBlocked {
		return nil, store.ErrResetPreconditionFailed
	}
	a.CredentialHash = &credentialHash
	a.FirstLoginPending = false
	a.ResetCount++
	a.ResetBlocked = a.ResetCount >= maxResets
	a.ResetLastAt = &at
	clone := *a
	return &clone, nil
}

func (m *memoryRepo) FindAdminByPincode(ctx context.Context, pincode string) (*domain.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[pincode]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memoryRepo) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.Pincode == admin.Pincode || existing.Email == admin.Email {
			return store.ErrAdminExists
		}
	}
	admin.ID = uuid.New()
	clone := *admin
	m.admins[admin.Pincode] = &clone
	return nil
}

func (m *memoryRepo) CreateServiceTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *tx
	m.txs[tx.ID] = &clone
	return nil
}

func (m *memoryRepo) FindServiceTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	clone := *tx
	return &clone, nil
}

func (m *memoryRepo) FindActiveServiceTransaction(ctx context.Context) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *domain.Transaction
	for _, tx := range m.txs {
		if tx.Status == domain.TransactionInProgress && (newest == nil || tx.CreatedAt.After(newest.CreatedAt)) {
			newest = tx
		}
	}
	if newest == nil {
		return nil, store.ErrTransactionNotFound
	}
	clone := *newest
	return &clone, nil
}

func (m *memoryRepo) transition(id uuid.UUID, status string, reason *string) (*domain.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, false, store.ErrTransactionNotFound
	}
	changed := tx.Status == domain.TransactionInProgress
	if changed {
		tx.Status = status
		tx.FailureReason = reason
	}
	clone := *tx
	return &clone, changed, nil
}

func (m *memoryRepo) CompleteServiceTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, bool, error) {
	return m.transition(id, domain.TransactionCompleted, nil)
}

func (m *memoryRepo) FailServiceTransaction(ctx context.Context, id uuid.UUID, reason string) (*domain.Transaction, bool, error) {
	return m.transition(id, domain.TransactionError, &reason)
}

func (m *memoryRepo) FailStaleServiceTransactions(ctx context.Context, cutoff time.Time, reason string) ([]domain.Transaction, error) {
	return nil, nil
}

func (m *memoryRepo) RecordMachineState(ctx context.Context, state *domain.MachineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.ID = int64(len(m.states) + 1)
	state.CreatedAt = time.Now().UTC()
	m.states = append(m.states, *state)
	return nil
}

func (m *memoryRepo) FindLatestMachineState(ctx context.Context) (*domain.MachineState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return nil, store.ErrMachineStateNotFound
	}
	latest := m.states[len(m.states)-1]
	return &latest, nil
}

func (m *memoryRepo) CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *memoryRepo) auditEntries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.audits...)
}
