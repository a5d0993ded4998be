package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

// MachineEventConsumer applies machine-controller messages. Handlers return false only
// for failures worth re-queuing; malformed or unknown payloads are acknowledged and dropped.
type MachineEventConsumer struct {
	cycle *ServiceCycle
}

func NewMachineEventConsumer(cycle *ServiceCycle) *MachineEventConsumer {
	return &MachineEventConsumer{cycle: cycle}
}

// Bindings maps routing keys to handlers for the rabbitmq consumer.
func (c *MachineEventConsumer) Bindings() map[string]func([]byte) bool {
	return map[string]func([]byte) bool{
		domain.RoutingMachineState:     c.HandleStateUpdate,
		domain.RoutingMachineCompleted: c.HandleCycleCompleted,
		domain.RoutingMachineFaulted:   c.HandleCycleFaulted,
	}
}

func (c *MachineEventConsumer) HandleStateUpdate(body []byte) bool {
	var event domain.MachineStateEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=machine_consumer msg=\"failed to unmarshal state payload\" err=%v", err)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := c.cycle.RecordMachineState(ctx, event); err != nil {
		if errors.Is(err, ErrValidation) {
			log.Printf("level=warn component=machine_consumer msg=\"dropping state update\" status=%q err=%v", event.Status, err)
			return true
		}
		log.Printf("level=error component=machine_consumer msg=\"state update failed\" err=%v", err)
		return false
	}
	return true
}

func (c *MachineEventConsumer) HandleCycleCompleted(body []byte) bool {
	event, ok := decodeCycleEvent(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := c.cycle.Complete(ctx, event.TransactionID)
	return c.settle("complete", event.TransactionID, err)
}

func (c *MachineEventConsumer) HandleCycleFaulted(body []byte) bool {
	event, ok := decodeCycleEvent(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := c.cycle.Fail(ctx, event.TransactionID, event.Reason)
	return c.settle("fault", event.TransactionID, err)
}

func (c *MachineEventConsumer) settle(action, transactionID string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrTransactionNotFound) {
		log.Printf("level=warn component=machine_consumer msg=\"no transaction for cycle event; acknowledging\" action=%s transaction_id=%s", action, transactionID)
		return true
	}
	log.Printf("level=error component=machine_consumer msg=\"cycle event failed\" action=%s transaction_id=%s err=%v", action, transactionID, err)
	return false
}

func decodeCycleEvent(body []byte) (domain.MachineCycleEvent, bool) {
	var event domain.MachineCycleEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=machine_consumer msg=\"failed to unmarshal cycle payload\" err=%v", err)
		return event, false
	}
	if strings.TrimSpace(event.TransactionID) == "" {
		log.Printf("level=warn component=machine_consumer msg=\"missing transaction id in cycle event\"")
		return event, false
	}
	return event, true
}
