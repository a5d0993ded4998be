package app

import (
	"context"
	"log"
	"strings"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
)

type requestMetaKey struct{}

// RequestMeta is the caller context recorded alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// WithRequestMeta attaches caller metadata for the auditor.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// Auditor appends activity log entries. Recording never fails the primary flow.
type Auditor struct {
	repo store.AuditRepository
}

func NewAuditor(repo store.AuditRepository) *Auditor {
	return &Auditor{repo: repo}
}

// Record persists entry, filling ip and user agent from ctx when unset.
func (a *Auditor) Record(ctx context.Context, entry domain.AuditEntry) {
	if a == nil || a.repo == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	if entry.IP == "" {
		entry.IP = meta.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	entry.ActorName = strings.TrimSpace(entry.ActorName)
	if err := a.repo.CreateAuditEntry(context.WithoutCancel(ctx), &entry); err != nil {
		log.Printf("level=warn component=audit msg=\"audit record failed\" action=%q actor_id=%s err=%v", entry.Action, entry.ActorID, err)
	}
}

func athleteActor(athlete *domain.Athlete, action string) domain.AuditEntry {
	return domain.AuditEntry{
		ActorID:   athlete.IDNumber,
		ActorRole: domain.RoleAthlete,
		ActorName: athlete.FirstName + " " + athlete.LastName,
		Action:    action,
		Target:    athlete.IDNumber,
	}
}
