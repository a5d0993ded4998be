package store

import (
	"context"
	"errors"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindAdminByPincode retrieves an administrator by the 6-digit login pincode.
func (r *PostgresRepository) FindAdminByPincode(ctx context.Context, pincode string) (*domain.Admin, error) {
	var admin domain.Admin
	query := `
		SELECT id, pincode, email, first_name, last_name, password_hash, created_at, updated_at
		FROM admins
		WHERE pincode = $1
	`
	err := r.db.QueryRow(ctx, query, pincode).Scan(
		&admin.ID,
		&admin.Pincode,
		&admin.Email,
		&admin.FirstName,
		&admin.LastName,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// CreateAdmin inserts an administrator. A nil ID is generated here.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	query := `
		INSERT INTO admins (id, pincode, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		admin.ID,
		admin.Pincode,
		admin.Email,
		admin.FirstName,
		admin.LastName,
		admin.PasswordHash,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAdminExists
		}
		return err
	}
	return nil
}
