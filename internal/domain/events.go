package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys used on the event exchange.
const (
	RoutingCycleStarted     = "service.cycle.started"
	RoutingCycleCompleted   = "service.cycle.completed"
	RoutingCycleFailed      = "service.cycle.failed"
	RoutingPinReset         = "athlete.pin.reset"
	RoutingResetBlocked     = "athlete.reset.blocked"
	RoutingMachineState     = "machine.state.updated"
	RoutingMachineCompleted = "machine.cycle.completed"
	RoutingMachineFaulted   = "machine.cycle.faulted"
)

// CycleEvent is published whenever a service transaction changes state.
type CycleEvent struct {
	TransactionID      uuid.UUID   `json:"transaction_id"`
	AthleteID          string      `json:"athlete_id"`
	ServiceType        ServiceKind `json:"service_type"`
	Status             string      `json:"status"`
	Amount             int64       `json:"amount"`
	ExpectedCompleteAt time.Time   `json:"expected_complete_at"`
	Reason             string      `json:"reason,omitempty"`
	Timestamp          time.Time   `json:"timestamp"`
}

// NewCycleEvent snapshots tx for publishing.
func NewCycleEvent(tx *Transaction, at time.Time) CycleEvent {
	event := CycleEvent{
		TransactionID:      tx.ID,
		AthleteID:          tx.AthleteID,
		ServiceType:        tx.ServiceType,
		Status:             tx.Status,
		Amount:             tx.Amount,
		ExpectedCompleteAt: tx.ExpectedCompleteAt,
		Timestamp:          at,
	}
	if tx.FailureReason != nil {
		event.Reason = *tx.FailureReason
	}
	return event
}

// RecoveryEvent is published on successful resets and when an athlete gets blocked.
// It never carries answers or credential material.
type RecoveryEvent struct {
	IDNumber        string    `json:"id_number"`
	ResetCount      int       `json:"reset_count"`
	RemainingResets int       `json:"remaining_resets"`
	Blocked         bool      `json:"blocked"`
	Timestamp       time.Time `json:"timestamp"`
}
