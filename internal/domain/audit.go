package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditAdminLogin        = "ADMIN LOGIN"
	AuditAthleteLogin      = "ATHLETE LOGIN"
	AuditAthleteLogout     = "ATHLETE LOGOUT"
	AuditAthleteOnboarded  = "ATHLETE ONBOARDED"
	AuditAthleteRegistered = "ATHLETE REGISTERED"
	AuditPinChanged        = "ATHLETE PIN CHANGED"
	AuditPinReset          = "ATHLETE PIN RESET"
	AuditResetBlocked      = "ATHLETE RESET BLOCKED"
	AuditServiceRequested  = "SERVICE REQUESTED"
	AuditServiceCompleted  = "SERVICE COMPLETED"
)

// AuditEntry is one row of the activity log read by the admin dashboard.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   string         `json:"actorId"`
	ActorRole string         `json:"actorRole"`
	ActorName string         `json:"actorName"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent"`
	CreatedAt time.Time      `json:"createdAt"`
}
