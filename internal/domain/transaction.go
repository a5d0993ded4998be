package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceKind selects the cleaning program. Price and duration derive from it.
type ServiceKind string

const (
	ServiceStandard ServiceKind = "standard"
	ServiceDeep     ServiceKind = "deep"
)

// Valid reports whether k is one of the supported kinds.
func (k ServiceKind) Valid() bool {
	return k == ServiceStandard || k == ServiceDeep
}

// AmountDue is fixed per kind and captured on the transaction at creation time.
func (k ServiceKind) AmountDue() int64 {
	if k == ServiceDeep {
		return 20
	}
	return 10
}

const (
	TransactionInProgress = "in-progress"
	TransactionCompleted  = "completed"
	TransactionError      = "error"
)

// Transaction is one service cycle. Amount, duration and expected completion are
// fixed when the record is created and never recomputed.
type Transaction struct {
	ID                 uuid.UUID   `json:"id"`
	AthleteID          string      `json:"studentId"`
	ServiceType        ServiceKind `json:"serviceType"`
	Status             string      `json:"status"`
	Amount             int64       `json:"amount"`
	DurationSec        int         `json:"durationSec"`
	ExpectedCompleteAt time.Time   `json:"expectedCompleteAt"`
	FailureReason      *string     `json:"failureReason,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// RemainingSeconds is ceil((expected - now) / 1s), clamped at zero.
func (t *Transaction) RemainingSeconds(now time.Time) int {
	remaining := t.ExpectedCompleteAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	secs := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// ServiceRequest is the body of POST /api/service/request.
type ServiceRequest struct {
	StudentID   string      `json:"studentId"`
	ServiceType ServiceKind `json:"serviceType"`
}

// ServiceResponse wraps a transaction with a human readable message.
type ServiceResponse struct {
	Message     string       `json:"message"`
	Transaction *Transaction `json:"transaction"`
}
