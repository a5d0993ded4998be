package domain

import "time"

const (
	MachineStandby = "standby"
	MachineInUse   = "in-use"
	MachineError   = "error"
)

// ValidMachineStatus reports whether status is one the controller may report.
func ValidMachineStatus(status string) bool {
	switch status {
	case MachineStandby, MachineInUse, MachineError:
		return true
	}
	return false
}

// MachineState is one telemetry snapshot from the vending unit. The latest row wins.
type MachineState struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	Operation   string    `json:"operation"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OperationLabel falls back to a label derived from the status when the controller
// did not report one.
func (m *MachineState) OperationLabel() string {
	if m.Operation != "" {
		return m.Operation
	}
	switch m.Status {
	case MachineInUse:
		return "cleaning"
	case MachineError:
		return "fault"
	default:
		return "idle"
	}
}

// MachineStatusView is the shape returned by GET /api/machine/status and pushed on
// the status stream. The countdown fields are null unless a cycle is active.
type MachineStatusView struct {
	Status             string     `json:"status"`
	Operation          string     `json:"operation"`
	Temperature        *float64   `json:"temperature"`
	Humidity           *float64   `json:"humidity"`
	ExpectedCompleteAt *time.Time `json:"expectedCompleteAt"`
	RemainingSec       *int       `json:"remainingSec"`
}

// MachineStateEvent is published by the machine controller, or posted to the
// internal state endpoint.
type MachineStateEvent struct {
	Status      string   `json:"status"`
	Operation   string   `json:"operation"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// MachineCycleEvent reports a controller-side completion or fault for a cycle.
type MachineCycleEvent struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason,omitempty"`
}
