package store

import (
	"context"
	"errors"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/jackc/pgx/v5"
)

// RecordMachineState appends a telemetry snapshot. The newest row is the current state.
func (r *PostgresRepository) RecordMachineState(ctx context.Context, state *domain.MachineState) error {
	query := `
		INSERT INTO machine_states (status, operation, temperature, humidity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, state.Status, state.Operation, state.Temperature, state.Humidity).
		Scan(&state.ID, &state.CreatedAt)
}

// FindLatestMachineState returns the most recent snapshot.
func (r *PostgresRepository) FindLatestMachineState(ctx context.Context) (*domain.MachineState, error) {
	var state domain.MachineState
	query := `
		SELECT id, status, operation, temperature, humidity, created_at
		FROM machine_states
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&state.ID,
		&state.Status,
		&state.Operation,
		&state.Temperature,
		&state.Humidity,
		&state.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMachineStateNotFound
		}
		return nil, err
	}
	return &state, nil
}
