/**
 * @description
 * This file defines the repository contracts used by the kiosk service. The business
 * logic in internal/app depends only on these interfaces, which keeps the PostgreSQL
 * implementation swappable and lets the application layer be tested with stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: Transaction identifiers.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrAdminNotFound           = errors.New("admin not found")
	ErrAdminExists             = errors.New("admin already exists")
	ErrAthleteNotFound         = errors.New("athlete not found")
	ErrAthleteExists           = errors.New("athlete already exists")
	ErrAthleteNotPending       = errors.New("athlete onboarding already completed")
	ErrResetPreconditionFailed = errors.New("reset precondition no longer holds")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrMachineStateNotFound    = errors.New("machine state not found")
)

// AthleteRepository persists athlete records. Every mutation is a single-row update.
type AthleteRepository interface {
	FindAthleteByIDNumber(ctx context.Context, idNumber string) (*domain.Athlete, error)
	CreateAthlete(ctx context.Context, athlete *domain.Athlete) error
	// CompleteOnboarding only succeeds while first_login_pending is still set.
	CompleteOnboarding(ctx context.Context, params OnboardingParams) (*domain.Athlete, error)
	UpdateCredential(ctx context.Context, idNumber string, credentialHash string) (*domain.Athlete, error)
	// MarkResetBlocked sets reset_blocked. It never clears it.
	MarkResetBlocked(ctx context.Context, idNumber string) error
	// ApplyPinReset replaces the credential and advances reset_count only while
	// reset_count < maxResets and reset_blocked is false. A rejected precondition
	// returns ErrResetPreconditionFailed.
	ApplyPinReset(ctx context.Context, idNumber string, credentialHash string, maxResets int, at time.Time) (*domain.Athlete, error)
}

// AdminRepository persists administrator accounts.
type AdminRepository interface {
	FindAdminByPincode(ctx context.Context, pincode string) (*domain.Admin, error)
	// CreateAdmin returns ErrAdminExists when the pincode or email is taken.
	CreateAdmin(ctx context.Context, admin *domain.Admin) error
}

// TransactionRepository persists service transactions.
type TransactionRepository interface {
	CreateServiceTransaction(ctx context.Context, tx *domain.Transaction) error
	FindServiceTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// FindActiveServiceTransaction returns the most recently created in-progress transaction.
	FindActiveServiceTransaction(ctx context.Context) (*domain.Transaction, error)
	// CompleteServiceTransaction moves an in-progress transaction to completed. When the
	// transaction already left in-progress the current record is returned with changed=false.
	CompleteServiceTransaction(ctx context.Context, id uuid.UUID) (tx *domain.Transaction, changed bool, err error)
	// FailServiceTransaction moves an in-progress transaction to error, same contract as above.
	FailServiceTransaction(ctx context.Context, id uuid.UUID, reason string) (tx *domain.Transaction, changed bool, err error)
	// FailStaleServiceTransactions moves every in-progress transaction whose expected
	// completion is before cutoff to error and returns the transitioned rows.
	FailStaleServiceTransactions(ctx context.Context, cutoff time.Time, reason string) ([]domain.Transaction, error)
}

// MachineRepository stores machine telemetry snapshots.
type MachineRepository interface {
	RecordMachineState(ctx context.Context, state *domain.MachineState) error
	FindLatestMachineState(ctx context.Context) (*domain.MachineState, error)
}

// AuditRepository appends activity log entries.
type AuditRepository interface {
	CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
}

// Repository is the full set implemented by PostgresRepository.
type Repository interface {
	AdminRepository
	AthleteRepository
	TransactionRepository
	MachineRepository
	AuditRepository
}

// OnboardingParams carries the normalized onboarding payload.
type OnboardingParams struct {
	IDNumber        string
	FirstName       string
	LastName        string
	CredentialHash  string
	SecurityAnswers domain.SecurityAnswers
}
