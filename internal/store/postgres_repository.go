/**
 * @description
 * This file provides the PostgreSQL implementation of the repository contracts.
 * Athlete mutations are written as single conditional UPDATE ... RETURNING
 * statements so that quota and onboarding preconditions are enforced by the
 * database rather than by a read-then-write in application code.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a concrete implementation of Repository for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const athleteColumns = `id_number, first_name, last_name, credential_hash, first_login_pending,
	security_answers, reset_count, reset_blocked, reset_last_at, created_at, updated_at`

// FindAthleteByIDNumber retrieves an athlete by the 6-digit identity key.
func (r *PostgresRepository) FindAthleteByIDNumber(ctx context.Context, idNumber string) (*domain.Athlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE id_number = $1`
	athlete, err := scanAthlete(r.db.QueryRow(ctx, query, idNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	return athlete, nil
}

// CreateAthlete inserts a pre-activation placeholder.
func (r *PostgresRepository) CreateAthlete(ctx context.Context, athlete *domain.Athlete) error {
	query := `
		INSERT INTO athletes (id_number, first_name, last_name, first_login_pending)
		VALUES ($1, $2, $3, TRUE)
		RETURNING first_login_pending, reset_count, reset_blocked, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, athlete.IDNumber, athlete.FirstName, athlete.LastName).Scan(
		&athlete.FirstLoginPending,
		&athlete.ResetCount,
		&athlete.ResetBlocked,
		&athlete.CreatedAt,
		&athlete.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAthleteExists
		}
		return err
	}
	return nil
}

// CompleteOnboarding stores the credential and security answers and clears the first-login flag.
func (r *PostgresRepository) CompleteOnboarding(ctx context.Context, params OnboardingParams) (*domain.Athlete, error) {
	answers, err := encodeSecurityAnswers(params.SecurityAnswers)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE athletes
		SET first_name = $2,
			last_name = $3,
			credential_hash = $4,
			security_answers = $5,
			first_login_pending = FALSE,
			updated_at = NOW()
		WHERE id_number = $1 AND first_login_pending
		RETURNING ` + athleteColumns
	athlete, err := scanAthlete(r.db.QueryRow(ctx, query, params.IDNumber, params.FirstName, params.LastName, params.CredentialHash, answers))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainMissedAthleteUpdate(ctx, params.IDNumber, ErrAthleteNotPending)
		}
		return nil, err
	}
	return athlete, nil
}

// UpdateCredential replaces the PIN hash and clears the first-login flag.
func (r *PostgresRepository) UpdateCredential(ctx context.Context, idNumber string, credentialHash string) (*domain.Athlete, error) {
	query := `
		UPDATE athletes
		SET credential_hash = $2, first_login_pending = FALSE, updated_at = NOW()
		WHERE id_number = $1
		RETURNING ` + athleteColumns
	athlete, err := scanAthlete(r.db.QueryRow(ctx, query, idNumber, credentialHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	return athlete, nil
}

// MarkResetBlocked sets the monotonic blocked flag.
func (r *PostgresRepository) MarkResetBlocked(ctx context.Context, idNumber string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE athletes
		SET reset_blocked = TRUE, updated_at = NOW()
		WHERE id_number = $1
	`, idNumber)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAthleteNotFound
	}
	return nil
}

// ApplyPinReset atomically replaces the credential and advances the reset counter.
func (r *PostgresRepository) ApplyPinReset(ctx context.Context, idNumber string, credentialHash string, maxResets int, at time.Time) (*domain.Athlete, error) {
	query := `
		UPDATE athletes
		SET credential_hash = $2,
			first_login_pending = FALSE,
			reset_count = reset_count + 1,
			reset_blocked = (reset_count + 1 >= $3),
			reset_last_at = $4,
			updated_at = NOW()
		WHERE id_number = $1
			AND reset_count < $3
			AND NOT reset_blocked
		RETURNING ` + athleteColumns
	athlete, err := scanAthlete(r.db.QueryRow(ctx, query, idNumber, credentialHash, maxResets, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainMissedAthleteUpdate(ctx, idNumber, ErrResetPreconditionFailed)
		}
		return nil, err
	}
	return athlete, nil
}

// explainMissedAthleteUpdate distinguishes a missing athlete from a failed precondition.
func (r *PostgresRepository) explainMissedAthleteUpdate(ctx context.Context, idNumber string, preconditionErr error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM athletes WHERE id_number = $1)`, idNumber).Scan(&exists); err != nil {
		return fmt.Errorf("check athlete existence: %w", err)
	}
	if !exists {
		return ErrAthleteNotFound
	}
	return preconditionErr
}

func scanAthlete(row pgx.Row) (*domain.Athlete, error) {
	var athlete domain.Athlete
	var answers []byte
	err := row.Scan(
		&athlete.IDNumber,
		&athlete.FirstName,
		&athlete.LastName,
		&athlete.CredentialHash,
		&athlete.FirstLoginPending,
		&answers,
		&athlete.ResetCount,
		&athlete.ResetBlocked,
		&athlete.ResetLastAt,
		&athlete.CreatedAt,
		&athlete.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	athlete.SecurityAnswers, err = decodeSecurityAnswers(answers)
	if err != nil {
		return nil, fmt.Errorf("decode security answers for %s: %w", athlete.IDNumber, err)
	}
	return &athlete, nil
}

// encodeSecurityAnswers returns the JSONB text. The pool runs in simple protocol mode,
// where a []byte argument would be sent as bytea.
func encodeSecurityAnswers(answers domain.SecurityAnswers) (string, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode security answers: %w", err)
	}
	return string(raw), nil
}

func decodeSecurityAnswers(raw []byte) (*domain.SecurityAnswers, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var answers domain.SecurityAnswers
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, err
	}
	return &answers, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
