package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, athlete_id, service_type, status, amount, duration_sec,
	expected_complete_at, failure_reason, created_at, updated_at`

// CreateServiceTransaction inserts a new in-progress cycle. A nil ID is generated here.
func (r *PostgresRepository) CreateServiceTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	query := `
		INSERT INTO service_transactions (id, athlete_id, service_type, status, amount, duration_sec, expected_complete_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		tx.ID,
		tx.AthleteID,
		string(tx.ServiceType),
		tx.Status,
		tx.Amount,
		tx.DurationSec,
		tx.ExpectedCompleteAt,
		tx.CreatedAt,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

// FindServiceTransactionByID retrieves a single transaction.
func (r *PostgresRepository) FindServiceTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM service_transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// FindActiveServiceTransaction returns the newest in-progress transaction.
func (r *PostgresRepository) FindActiveServiceTransaction(ctx context.Context) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM service_transactions
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, domain.TransactionInProgress))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// CompleteServiceTransaction transitions in-progress to completed.
func (r *PostgresRepository) CompleteServiceTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, bool, error) {
	return r.transitionServiceTransaction(ctx, id, domain.TransactionCompleted, nil)
}

// FailServiceTransaction transitions in-progress to error and records the reason.
func (r *PostgresRepository) FailServiceTransaction(ctx context.Context, id uuid.UUID, reason string) (*domain.Transaction, bool, error) {
	return r.transitionServiceTransaction(ctx, id, domain.TransactionError, &reason)
}

func (r *PostgresRepository) transitionServiceTransaction(ctx context.Context, id uuid.UUID, status string, reason *string) (*domain.Transaction, bool, error) {
	query := `
		UPDATE service_transactions
		SET status = $2, failure_reason = COALESCE($3, failure_reason), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id, status, reason, domain.TransactionInProgress))
	if err == nil {
		return tx, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Already terminal (or missing): report the stored record unchanged.
	current, findErr := r.FindServiceTransactionByID(ctx, id)
	if findErr != nil {
		return nil, false, findErr
	}
	return current, false, nil
}

// FailStaleServiceTransactions marks overdue in-progress cycles as errored in one statement.
func (r *PostgresRepository) FailStaleServiceTransactions(ctx context.Context, cutoff time.Time, reason string) ([]domain.Transaction, error) {
	query := `
		UPDATE service_transactions
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE status = $3 AND expected_complete_at < $4
		RETURNING ` + transactionColumns
	rows, err := r.db.Query(ctx, query, domain.TransactionError, reason, domain.TransactionInProgress, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale transaction: %w", err)
		}
		failed = append(failed, *tx)
	}
	return failed, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var serviceType string
	err := row.Scan(
		&tx.ID,
		&tx.AthleteID,
		&serviceType,
		&tx.Status,
		&tx.Amount,
		&tx.DurationSec,
		&tx.ExpectedCompleteAt,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.ServiceType = domain.ServiceKind(serviceType)
	return &tx, nil
}
