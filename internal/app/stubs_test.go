package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
	"github.com/google/uuid"
)

// athleteRepoStub mirrors the conditional updates of the PostgreSQL repository in memory.
type athleteRepoStub struct {
	mu       sync.Mutex
	athletes map[string]*domain.Athlete

	findErr          error
	markBlockedCalls int
	applyResetCalls  int
	// beforeApply runs inside ApplyPinReset before the precondition check.
	beforeApply func(a *domain.Athlete)
}

func newAthleteRepoStub(athletes ...*domain.Athlete) *athleteRepoStub {
	repo := &athleteRepoStub{athletes: make(map[string]*domain.Athlete)}
	for _, a := range athletes {
		repo.athletes[a.IDNumber] = a
	}
	return repo
}

func (s *athleteRepoStub) get(idNumber string) *domain.Athlete {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.athletes[idNumber]
	if !ok {
		return nil
	}
	clone := *a
	return &clone
}

func (s *athleteRepoStub) FindAthleteByIDNumber(ctx context.Context, idNumber string) (*domain.Athlete, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	a := s.get(idNumber)
	if a == nil {
		return nil, store.ErrAthleteNotFound
	}
	return a, nil
}

func (s *athleteRepoStub) CreateAthlete(ctx context.Context, athlete *domain.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.athletes[athlete.IDNumber]; ok {
		return store.ErrAthleteExists
	}
	athlete.FirstLoginPending = true
	clone := *athlete
	s.athletes[athlete.IDNumber] = &clone
	return nil
}

func (s *athleteRepoStub) CompleteOnboarding(ctx context.Context, params store.OnboardingParams) (*domain.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.athletes[params.IDNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	if !a.FirstLoginPending {
		return nil, store.ErrAthleteNotPending
	}
	hash := params.CredentialHash
	answers := params.SecurityAnswers
	a.FirstName = params.FirstName
	a.LastName = params.LastName
	a.CredentialHash = &hash
	a.SecurityAnswers = &answers
	a.FirstLoginPending = false
	clone := *a
	return &clone, nil
}

func (s *athleteRepoStub) UpdateCredential(ctx context.Context, idNumber string, credentialHash string) (*domain.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.athletes[idNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	a.CredentialHash = &credentialHash
	a.FirstLoginPending = false
	clone := *a
	return &clone, nil
}

func (s *athleteRepoStub) MarkResetBlocked(ctx context.Context, idNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.athletes[idNumber]
	if !ok {
		return store.ErrAthleteNotFound
	}
	s.markBlockedCalls++
	a.ResetBlocked = true
	return nil
}

func (s *athleteRepoStub) ApplyPinReset(ctx context.Context, idNumber string, credentialHash string, maxResets int, at time.Time) (*domain.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyResetCalls++
	a, ok := s.athletes[idNumber]
	if !ok {
		return nil, store.ErrAthleteNotFound
	}
	if s.beforeApply != nil {
		s.beforeApply(a)
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

type adminRepoStub struct {
	mu     sync.Mutex
	admins map[string]*domain.Admin
}

func newAdminRepoStub(admins ...*domain.Admin) *adminRepoStub {
	repo := &adminRepoStub{admins: make(map[string]*domain.Admin)}
	for _, a := range admins {
		repo.admins[a.Pincode] = a
	}
	return repo
}

func (s *adminRepoStub) FindAdminByPincode(ctx context.Context, pincode string) (*domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[pincode]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *adminRepoStub) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if existing.Pincode == admin.Pincode || existing.Email == admin.Email {
			return store.ErrAdminExists
		}
	}
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	clone := *admin
	s.admins[admin.Pincode] = &clone
	return nil
}

type transactionRepoStub struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*domain.Transaction

	createErr error
	staleErr  error
}

func newTransactionRepoStub() *transactionRepoStub {
	return &transactionRepoStub{txs: make(map[uuid.UUID]*domain.Transaction)}
}

func (s *transactionRepoStub) CreateServiceTransaction(ctx context.Context, tx *domain.Transaction) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *tx
	s.txs[tx.ID] = &clone
	return nil
}

func (s *transactionRepoStub) FindServiceTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	clone := *tx
	return &clone, nil
}

func (s *transactionRepoStub) FindActiveServiceTransaction(ctx context.Context) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*domain.Transaction
	for _, tx := range s.txs {
		if tx.Status == domain.TransactionInProgress {
			active = append(active, tx)
		}
	}
	if len(active) == 0 {
		return nil, store.ErrTransactionNotFound
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	clone := *active[0]
	return &clone, nil
}

func (s *transactionRepoStub) transition(id uuid.UUID, status string, reason *string) (*domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, false, store.ErrTransactionNotFound
	}
	if tx.Status != domain.TransactionInProgress {
		clone := *tx
		return &clone, false, nil
	}
	tx.Status = status
	if reason != nil {
		tx.FailureReason = reason
	}
	clone := *tx
	return &clone, true, nil
}

func (s *transactionRepoStub) CompleteServiceTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, bool, error) {
	return s.transition(id, domain.TransactionCompleted, nil)
}

func (s *transactionRepoStub) FailServiceTransaction(ctx context.Context, id uuid.UUID, reason string) (*domain.Transaction, bool, error) {
	return s.transition(id, domain.TransactionError, &reason)
}

func (s *transactionRepoStub) FailStaleServiceTransactions(ctx context.Context, cutoff time.Time, reason string) ([]domain.Transaction, error) {
	if s.staleErr != nil {
		return nil, s.staleErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []domain.Transaction
	for _, tx := range s.txs {
		if tx.Status == domain.TransactionInProgress && tx.ExpectedCompleteAt.Before(cutoff) {
			r := reason
			tx.Status = domain.TransactionError
			tx.FailureReason = &r
			failed = append(failed, *tx)
		}
	}
	return failed, nil
}

type machineRepoStub struct {
	mu     sync.Mutex
	states []domain.MachineState
	err    error
}

func (s *machineRepoStub) RecordMachineState(ctx context.Context, state *domain.MachineState) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state.ID = int64(len(s.states) + 1)
	s.states = append(s.states, *state)
	return nil
}

func (s *machineRepoStub) FindLatestMachineState(ctx context.Context) (*domain.MachineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return nil, store.ErrMachineStateNotFound
	}
	latest := s.states[len(s.states)-1]
	return &latest, nil
}

type auditRepoStub struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *auditRepoStub) CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *auditRepoStub) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return p.err
}

func (p *publisherStub) Close() {}

func (p *publisherStub) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.routingKey)
	}
	return out
}

// plainHasher keeps tests fast; bcrypt has its own test.
type plainHasher struct{}

func (plainHasher) Hash(pin string) (string, error) { return "plain:" + pin, nil }
func (plainHasher) Matches(hash, pin string) bool   { return hash == "plain:"+pin }

type notifierStub struct {
	mu    sync.Mutex
	calls int
}

func (n *notifierStub) Notify() {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *notifierStub) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func strPtr(value string) *string { return &value }

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
