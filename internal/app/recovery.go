/**
 * @description
 * This file implements the self-service PIN recovery flow. An athlete proves identity
 * by answering the five security questions saved during onboarding; each successful
 * reset consumes one of a fixed number of lifetime resets, after which the account is
 * blocked for self-service and an administrator has to step in.
 *
 * @notes
 * - The quota is re-read from storage on every call and enforced again by the
 *   conditional UPDATE in ApplyPinReset, so concurrent resets cannot exceed it.
 * - Once set, reset_blocked is never cleared by this service.
 */

package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
)

const recoveryStartMessage = "Answer each recovery question exactly as you saved it during activation."

// RecoveryFlow drives initiate and reset for PIN recovery.
type RecoveryFlow struct {
	athletes store.AthleteRepository
	hasher   PinHasher
	events   *EventPublisher
	audit    *Auditor
	now      func() time.Time
}

func NewRecoveryFlow(athletes store.AthleteRepository, hasher PinHasher, events *EventPublisher, audit *Auditor) *RecoveryFlow {
	return &RecoveryFlow{
		athletes: athletes,
		hasher:   hasher,
		events:   events,
		audit:    audit,
		now:      time.Now,
	}
}

// Initiate returns the recovery prompts for an athlete who still has resets left.
func (f *RecoveryFlow) Initiate(ctx context.Context, idNumber string) (*domain.ForgotPinStartResult, error) {
	idNumber = strings.TrimSpace(idNumber)
	if err := validateIdentity(idNumber); err != nil {
		return nil, err
	}

	athlete, err := f.loadAthlete(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	if err := f.enforceQuota(ctx, athlete); err != nil {
		return nil, err
	}
	if !athlete.RecoveryConfigured() {
		return nil, ErrRecoveryNotConfigured
	}

	return &domain.ForgotPinStartResult{
		Message:         recoveryStartMessage,
		Questions:       recoveryQuestions(athlete.SecurityAnswers),
		RemainingResets: athlete.RemainingResets(),
	}, nil
}

// Reset verifies the answers and replaces the credential in a single conditional update.
func (f *RecoveryFlow) Reset(ctx context.Context, req domain.ForgotPinResetRequest) (*domain.ForgotPinResetResult, error) {
	idNumber := strings.TrimSpace(req.IDNumber)
	newPin := strings.TrimSpace(req.NewPincode)
	confirmPin := strings.TrimSpace(req.ConfirmPincode)
	if err := validateIdentity(idNumber); err != nil {
		return nil, err
	}
	if err := validatePincodePair("newPincode", newPin, confirmPin); err != nil {
		return nil, err
	}

	athlete, err := f.loadAthlete(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	if err := f.enforceQuota(ctx, athlete); err != nil {
		return nil, err
	}
	if !athlete.RecoveryConfigured() {
		return nil, ErrRecoveryNotConfigured
	}
	if !answersMatch(athlete.SecurityAnswers.Values(), req.Answers.Values()) {
		log.Printf("level=info component=recovery msg=\"security answers rejected\" id_number=%s", idNumber)
		return nil, &AnswersMismatchError{RemainingResets: athlete.RemainingResets()}
	}

	hash, err := f.hasher.Hash(newPin)
	if err != nil {
		return nil, fmt.Errorf("hash new pin: %w", err)
	}

	updated, err := f.athletes.ApplyPinReset(ctx, idNumber, hash, domain.MaxPinResets, f.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAthleteNotFound):
			return nil, ErrAthleteNotFound
		case errors.Is(err, store.ErrResetPreconditionFailed):
			// Another reset won the race; make sure the block is recorded.
			log.Printf("level=warn component=recovery msg=\"reset precondition failed\" id_number=%s", idNumber)
			f.markBlocked(ctx, athlete)
			return nil, ErrResetQuotaExceeded
		default:
			return nil, fmt.Errorf("apply pin reset: %w", err)
		}
	}

	remaining := updated.RemainingResets()
	log.Printf("level=info component=recovery msg=\"pin reset applied\" id_number=%s reset_count=%d blocked=%t", idNumber, updated.ResetCount, updated.ResetBlocked)

	event := domain.RecoveryEvent{
		IDNumber:        updated.IDNumber,
		ResetCount:      updated.ResetCount,
		RemainingResets: remaining,
		Blocked:         updated.ResetBlocked,
		Timestamp:       f.now().UTC(),
	}
	f.events.publish(ctx, domain.RoutingPinReset, event)
	if updated.ResetBlocked {
		f.events.publish(ctx, domain.RoutingResetBlocked, event)
	}

	entry := athleteActor(updated, domain.AuditPinReset)
	entry.Details = map[string]any{"resetCount": updated.ResetCount, "remainingResets": remaining}
	f.audit.Record(ctx, entry)

	return &domain.ForgotPinResetResult{
		Message:         resetSuccessMessage(remaining),
		RemainingResets: remaining,
		Blocked:         updated.ResetBlocked,
	}, nil
}

func (f *RecoveryFlow) loadAthlete(ctx context.Context, idNumber string) (*domain.Athlete, error) {
	athlete, err := f.athletes.FindAthleteByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, store.ErrAthleteNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, fmt.Errorf("find athlete: %w", err)
	}
	return athlete, nil
}

// enforceQuota fails with ErrResetQuotaExceeded once the quota is used up, persisting
// the blocked flag first when it is not set yet.
func (f *RecoveryFlow) enforceQuota(ctx context.Context, athlete *domain.Athlete) error {
	if !athlete.ResetQuotaExhausted() {
		return nil
	}
	if !athlete.ResetBlocked {
		if err := f.athletes.MarkResetBlocked(ctx, athlete.IDNumber); err != nil {
			return fmt.Errorf("mark reset blocked: %w", err)
		}
		athlete.ResetBlocked = true
		f.announceBlocked(ctx, athlete)
	}
	return ErrResetQuotaExceeded
}

// markBlocked is the best-effort variant used after a lost race.
func (f *RecoveryFlow) markBlocked(ctx context.Context, athlete *domain.Athlete) {
	current, err := f.athletes.FindAthleteByIDNumber(ctx, athlete.IDNumber)
	if err != nil {
		log.Printf("level=warn component=recovery msg=\"reload after lost race failed\" id_number=%s err=%v", athlete.IDNumber, err)
		return
	}
	if current.ResetBlocked || !current.ResetQuotaExhausted() {
		return
	}
	if err := f.athletes.MarkResetBlocked(ctx, current.IDNumber); err != nil {
		log.Printf("level=warn component=recovery msg=\"mark reset blocked failed\" id_number=%s err=%v", current.IDNumber, err)
		return
	}
	current.ResetBlocked = true
	f.announceBlocked(ctx, current)
}

func (f *RecoveryFlow) announceBlocked(ctx context.Context, athlete *domain.Athlete) {
	log.Printf("level=warn component=recovery msg=\"self-service resets blocked\" id_number=%s reset_count=%d", athlete.IDNumber, athlete.ResetCount)
	f.events.publish(ctx, domain.RoutingResetBlocked, domain.RecoveryEvent{
		IDNumber:        athlete.IDNumber,
		ResetCount:      athlete.ResetCount,
		RemainingResets: athlete.RemainingResets(),
		Blocked:         true,
		Timestamp:       f.now().UTC(),
	})
	entry := athleteActor(athlete, domain.AuditResetBlocked)
	entry.Details = map[string]any{"resetCount": athlete.ResetCount}
	f.audit.Record(ctx, entry)
}

func recoveryQuestions(answers *domain.SecurityAnswers) []domain.RecoveryQuestion {
	extraLabel := domain.DefaultExtraQuestionLabel
	if answers != nil && strings.TrimSpace(answers.ExtraQuestionLabel) != "" {
		extraLabel = strings.TrimSpace(answers.ExtraQuestionLabel)
	}
	return []domain.RecoveryQuestion{
		{Key: "fullName", Prompt: "What is your full name?"},
		{Key: "firstName", Prompt: "What is your given first name?"},
		{Key: "lastName", Prompt: "What is your family / last name?"},
		{Key: "favoriteLunchFood", Prompt: "What is your go-to lunch food before practice?"},
		{Key: "extraAnswer", Prompt: extraLabel},
	}
}

// answersMatch compares every pair after normalization and does not stop early.
func answersMatch(stored, submitted [5]string) bool {
	matched := 1
	for i := range stored {
		want := normalizeAnswer(stored[i])
		got := normalizeAnswer(submitted[i])
		matched &= subtle.ConstantTimeCompare([]byte(want), []byte(got))
	}
	return matched == 1
}

func resetSuccessMessage(remaining int) string {
	return "Pincode reset successfully. " + RemainingResetsSentence(remaining)
}

// RemainingResetsSentence describes the self-service quota left.
func RemainingResetsSentence(remaining int) string {
	switch remaining {
	case 0:
		return "You have no self-service resets remaining; contact an administrator for further help."
	case 1:
		return "You have 1 self-service reset remaining."
	default:
		return fmt.Sprintf("You have %d self-service resets remaining.", remaining)
	}
}
