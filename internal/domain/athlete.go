/**
 * @description
 * This file defines the athlete entity and the request/response DTOs of the
 * onboarding, login and PIN-recovery flows.
 *
 * @notes
 * - Security answers are stored normalized (trimmed, whitespace collapsed, lowercased)
 *   and compared in that form. They are never serialized back to clients.
 */

package domain

import "time"

// MaxPinResets is the number of self-service PIN resets an athlete gets before an
// administrator has to step in.
const MaxPinResets = 3

const (
	RoleAthlete = "athlete"
	RoleAdmin   = "admin"
)

// DefaultExtraQuestionLabel is shown when the athlete did not store a custom label.
const DefaultExtraQuestionLabel = "What is your go-to recovery meal after training sessions?"

// Athlete maps to the `athletes` table. IDNumber is the immutable identity key.
type Athlete struct {
	IDNumber          string           `json:"idNumber"`
	FirstName         string           `json:"fname"`
	LastName          string           `json:"lname"`
	CredentialHash    *string          `json:"-"`
	FirstLoginPending bool             `json:"firstLogin"`
	SecurityAnswers   *SecurityAnswers `json:"-"`
	ResetCount        int              `json:"resetCount"`
	ResetBlocked      bool             `json:"resetBlocked"`
	ResetLastAt       *time.Time       `json:"resetLastAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// HasCredential reports whether onboarding has set a PIN.
func (a *Athlete) HasCredential() bool {
	return a.CredentialHash != nil && *a.CredentialHash != ""
}

// RecoveryConfigured reports whether all five recovery answers are present.
func (a *Athlete) RecoveryConfigured() bool {
	return a.SecurityAnswers != nil && a.SecurityAnswers.Complete()
}

// ResetQuotaExhausted reports whether self-service recovery must be refused.
func (a *Athlete) ResetQuotaExhausted() bool {
	return a.ResetBlocked || a.ResetCount >= MaxPinResets
}

// RemainingResets never goes below zero.
func (a *Athlete) RemainingResets() int {
	remaining := MaxPinResets - a.ResetCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SecurityAnswers is persisted as a JSONB document on the athlete row.
type SecurityAnswers struct {
	FullName           string `json:"fullName"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	FavoriteLunchFood  string `json:"favoriteLunchFood"`
	ExtraAnswer        string `json:"extraAnswer"`
	ExtraQuestionLabel string `json:"extraQuestionLabel,omitempty"`
}

// Complete is all-or-nothing: a single empty answer makes recovery unavailable.
func (s SecurityAnswers) Complete() bool {
	for _, value := range s.Values() {
		if value == "" {
			return false
		}
	}
	return true
}

// Values returns the five answers in question order.
func (s SecurityAnswers) Values() [5]string {
	return [5]string{s.FullName, s.FirstName, s.LastName, s.FavoriteLunchFood, s.ExtraAnswer}
}

// RecoveryQuestion is one prompt returned by the recovery start endpoint.
type RecoveryQuestion struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
}

// RecoveryAnswers is the answer set submitted with a reset request.
type RecoveryAnswers struct {
	FullName          string `json:"fullName"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	FavoriteLunchFood string `json:"favoriteLunchFood"`
	ExtraAnswer       string `json:"extraAnswer"`
}

// Values returns the submitted answers in question order.
func (a RecoveryAnswers) Values() [5]string {
	return [5]string{a.FullName, a.FirstName, a.LastName, a.FavoriteLunchFood, a.ExtraAnswer}
}

// ForgotPinStartRequest is the body of POST /api/athletes/forgot-pin/start.
type ForgotPinStartRequest struct {
	IDNumber string `json:"idNumber"`
}

// ForgotPinStartResult is returned by a successful recovery initiation.
type ForgotPinStartResult struct {
	Message         string             `json:"message"`
	Questions       []RecoveryQuestion `json:"questions"`
	RemainingResets int                `json:"remainingResets"`
}

// ForgotPinResetRequest is the body of POST /api/athletes/forgot-pin/reset.
type ForgotPinResetRequest struct {
	IDNumber       string          `json:"idNumber"`
	Answers        RecoveryAnswers `json:"answers"`
	NewPincode     string          `json:"newPincode"`
	ConfirmPincode string          `json:"confirmPincode"`
}

// ForgotPinResetResult is returned by a successful reset.
type ForgotPinResetResult struct {
	Message         string `json:"message"`
	RemainingResets int    `json:"remainingResets"`
	Blocked         bool   `json:"blocked"`
}

// RegisterAthleteRequest is the admin registration body.
type RegisterAthleteRequest struct {
	IDNumber  string `json:"idNumber"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// OnboardingRequest is the first-time setup body.
type OnboardingRequest struct {
	IDNumber        string          `json:"idNumber"`
	Pincode         string          `json:"pincode"`
	ConfirmPincode  string          `json:"confirmPincode"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	SecurityAnswers SecurityAnswers `json:"securityAnswers"`
}

// LoginRequest is the athlete login body.
type LoginRequest struct {
	IDNumber string `json:"idNumber"`
	Pincode  string `json:"pincode"`
}

// LoginResult carries the signed token and the public profile.
type LoginResult struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Role       string    `json:"role"`
	FirstName  string    `json:"fname"`
	LastName   string    `json:"lname"`
	IDNumber   string    `json:"idNumber"`
	FirstLogin bool      `json:"firstLogin"`
}

// ChangePinRequest is the authenticated PIN change body.
type ChangePinRequest struct {
	IDNumber   string `json:"idNumber"`
	OldPincode string `json:"oldPincode"`
	NewPincode string `json:"newPincode"`
}
