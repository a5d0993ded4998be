package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin maps to the `admins` table. Pincode is the 6-digit login identifier.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Pincode      string    `json:"pincode"`
	Email        string    `json:"email"`
	FirstName    string    `json:"fname"`
	LastName     string    `json:"lname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AdminLoginRequest is the body of POST /api/auth/login.
type AdminLoginRequest struct {
	Pincode  string `json:"pincode"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
