/**
 * @description
 * This file implements the service-cycle lifecycle: a request creates a timed
 * transaction, the live machine status joins the latest telemetry with the active
 * transaction for a countdown, and completion or a controller fault closes it.
 *
 * @notes
 * - Amount, duration and expected completion are fixed at creation.
 * - The countdown is computed on read from expectedCompleteAt; no timers run.
 * - Completing an already completed transaction returns it unchanged.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
	"github.com/google/uuid"
)

// CycleDurations maps each service kind to its configured length.
type CycleDurations struct {
	Standard time.Duration
	Deep     time.Duration
}

func (d CycleDurations) For(kind domain.ServiceKind) time.Duration {
	if kind == domain.ServiceDeep {
		return d.Deep
	}
	return d.Standard
}

// StatusNotifier is told whenever the machine-status view may have changed.
type StatusNotifier interface {
	Notify()
}

// ServiceCycle owns service transactions and the live machine-status view.
type ServiceCycle struct {
	transactions store.TransactionRepository
	machine      store.MachineRepository
	durations    CycleDurations
	events       *EventPublisher
	audit        *Auditor
	notifier     StatusNotifier
	now          func() time.Time
}

func NewServiceCycle(transactions store.TransactionRepository, machine store.MachineRepository, durations CycleDurations, events *EventPublisher, audit *Auditor) *ServiceCycle {
	return &ServiceCycle{
		transactions: transactions,
		machine:      machine,
		durations:    durations,
		events:       events,
		audit:        audit,
		now:          time.Now,
	}
}

// SetStatusNotifier wires the live feed after construction; the feed itself reads from the cycle.
func (s *ServiceCycle) SetStatusNotifier(n StatusNotifier) {
	s.notifier = n
}

// Start creates an in-progress transaction for athleteID.
func (s *ServiceCycle) Start(ctx context.Context, athleteID string, kind domain.ServiceKind) (*domain.Transaction, error) {
	athleteID = strings.TrimSpace(athleteID)
	if err := validateIdentity(athleteID); err != nil {
		return nil, invalid("studentId", "Student ID must be exactly 6 digits.")
	}
	kind = domain.ServiceKind(strings.ToLower(strings.TrimSpace(string(kind))))
	if !kind.Valid() {
		return nil, invalid("serviceType", "Service type must be standard or deep.")
	}

	duration := s.durations.For(kind)
	createdAt := s.now().UTC()
	tx := &domain.Transaction{
		ID:                 uuid.New(),
		AthleteID:          athleteID,
		ServiceType:        kind,
		Status:             domain.TransactionInProgress,
		Amount:             kind.AmountDue(),
		DurationSec:        int(duration / time.Second),
		ExpectedCompleteAt: createdAt.Add(duration),
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
	if err := s.transactions.CreateServiceTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create service transaction: %w", err)
	}
	log.Printf("level=info component=service_cycle msg=\"cycle started\" transaction_id=%s athlete_id=%s service_type=%s duration_sec=%d", tx.ID, tx.AthleteID, tx.ServiceType, tx.DurationSec)

	s.events.publish(ctx, domain.RoutingCycleStarted, domain.NewCycleEvent(tx, createdAt))
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:   tx.AthleteID,
		ActorRole: domain.RoleAthlete,
		Action:    domain.AuditServiceRequested,
		Target:    tx.ID.String(),
		Details:   map[string]any{"serviceType": tx.ServiceType, "amount": tx.Amount},
	})
	s.notify()
	return tx, nil
}

// Status is a direct lookup.
func (s *ServiceCycle) Status(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	tx, err := s.transactions.FindServiceTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find service transaction: %w", err)
	}
	return tx, nil
}

// Complete moves in-progress to completed. Repeated calls return the stored record.
func (s *ServiceCycle) Complete(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	tx, changed, err := s.transactions.CompleteServiceTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("complete service transaction: %w", err)
	}
	if !changed {
		log.Printf("level=info component=service_cycle msg=\"complete ignored; transaction not in progress\" transaction_id=%s status=%s", tx.ID, tx.Status)
		return tx, nil
	}
	log.Printf("level=info component=service_cycle msg=\"cycle completed\" transaction_id=%s", tx.ID)

	s.events.publish(ctx, domain.RoutingCycleCompleted, domain.NewCycleEvent(tx, s.now().UTC()))
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:   tx.AthleteID,
		ActorRole: domain.RoleAthlete,
		Action:    domain.AuditServiceCompleted,
		Target:    tx.ID.String(),
	})
	s.notify()
	return tx, nil
}

// Fail moves in-progress to error. It is driven by machine-controller fault reports.
func (s *ServiceCycle) Fail(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error) {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "machine fault"
	}
	tx, changed, err := s.transactions.FailServiceTransaction(ctx, id, reason)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("fail service transaction: %w", err)
	}
	if changed {
		log.Printf("level=warn component=service_cycle msg=\"cycle failed\" transaction_id=%s reason=%q", tx.ID, reason)
		s.events.publish(ctx, domain.RoutingCycleFailed, domain.NewCycleEvent(tx, s.now().UTC()))
		s.notify()
	}
	return tx, nil
}

// LiveMachineStatus joins the latest machine state with the active transaction.
func (s *ServiceCycle) LiveMachineStatus(ctx context.Context) (*domain.MachineStatusView, error) {
	state, err := s.machine.FindLatestMachineState(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrMachineStateNotFound) {
			return nil, fmt.Errorf("find latest machine state: %w", err)
		}
		// No telemetry yet: the unit has never reported, show it idle.
		state = &domain.MachineState{Status: domain.MachineStandby}
	}

	view := &domain.MachineStatusView{
		Status:      state.Status,
		Operation:   state.OperationLabel(),
		Temperature: state.Temperature,
		Humidity:    state.Humidity,
	}
	if state.Status != domain.MachineInUse {
		return view, nil
	}

	active, err := s.transactions.FindActiveServiceTransaction(ctx)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=service_cycle msg=\"machine in use without an in-progress transaction\" machine_state_id=%d", state.ID)
			return view, nil
		}
		return nil, fmt.Errorf("find active service transaction: %w", err)
	}

	expected := active.ExpectedCompleteAt
	remaining := active.RemainingSeconds(s.now())
	view.ExpectedCompleteAt = &expected
	view.RemainingSec = &remaining
	return view, nil
}

// RecordMachineState appends a telemetry snapshot and pushes a fresh status.
func (s *ServiceCycle) RecordMachineState(ctx context.Context, event domain.MachineStateEvent) (*domain.MachineState, error) {
	status := strings.ToLower(strings.TrimSpace(event.Status))
	if !domain.ValidMachineStatus(status) {
		return nil, invalid("status", "Machine status must be standby, in-use or error.")
	}
	state := &domain.MachineState{
		Status:      status,
		Operation:   strings.TrimSpace(event.Operation),
		Temperature: event.Temperature,
		Humidity:    event.Humidity,
	}
	if err := s.machine.RecordMachineState(ctx, state); err != nil {
		return nil, fmt.Errorf("record machine state: %w", err)
	}
	s.notify()
	return state, nil
}

func (s *ServiceCycle) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

func parseTransactionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		// A malformed id can never name a stored transaction.
		return uuid.Nil, ErrTransactionNotFound
	}
	return id, nil
}
