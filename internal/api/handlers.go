/**
 * @description
 * HTTP handlers for the kiosk API. Handlers decode the request, call the application
 * services and translate their sentinel errors into status codes and JSON bodies.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/app"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

// Handlers holds the application services that handlers will use.
type Handlers struct {
	recovery  *app.RecoveryFlow
	accounts  *app.Accounts
	cycle     *app.ServiceCycle
	feed      *app.StatusFeed
	heartbeat time.Duration
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(recovery *app.RecoveryFlow, accounts *app.Accounts, cycle *app.ServiceCycle, feed *app.StatusFeed, heartbeat time.Duration) *Handlers {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Handlers{
		recovery:  recovery,
		accounts:  accounts,
		cycle:     cycle,
		feed:      feed,
		heartbeat: heartbeat,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type blockedBody struct {
	Message         string `json:"message"`
	Blocked         bool   `json:"blocked"`
	RemainingResets int    `json:"remainingResets"`
}

type mismatchBody struct {
	Message         string `json:"message"`
	RemainingResets int    `json:"remainingResets"`
}

type messageBody struct {
	Message string `json:"message"`
}

type athleteBody struct {
	Message string         `json:"message"`
	Athlete athleteProfile `json:"athlete"`
}

type athleteProfile struct {
	IDNumber          string `json:"idNumber"`
	FirstName         string `json:"fname"`
	LastName          string `json:"lname"`
	FirstLoginPending bool   `json:"firstLoginPending"`
}

func profileOf(a *domain.Athlete) athleteProfile {
	return athleteProfile{
		IDNumber:          a.IDNumber,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		FirstLoginPending: a.FirstLoginPending,
	}
}

// decodeJSON reads the body into dst, answering 400 when it is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, endpoint string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=invalid_json err=%v", endpoint, err)
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body"})
		return false
	}
	return true
}

// writeServiceError maps application errors to HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	var validationErr *app.ValidationError
	var mismatchErr *app.AnswersMismatchError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: validationErr.Message, Field: validationErr.Field})
	case errors.As(err, &mismatchErr):
		writeJSON(w, http.StatusUnauthorized, mismatchBody{
			Message:         "One or more answers did not match our records. " + app.RemainingResetsSentence(mismatchErr.RemainingResets),
			RemainingResets: mismatchErr.RemainingResets,
		})
	case errors.Is(err, app.ErrAthleteNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Athlete account not found. Please contact an administrator."})
	case errors.Is(err, app.ErrAdminNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
	case errors.Is(err, app.ErrTransactionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Transaction not found"})
	case errors.Is(err, app.ErrRecoveryNotConfigured):
		writeJSON(w, http.StatusPreconditionFailed, errorBody{Message: "Recovery questions are not set up for this account. Please contact an administrator."})
	case errors.Is(err, app.ErrResetQuotaExceeded):
		writeJSON(w, http.StatusLocked, blockedBody{
			Message: "Self-service reset limit reached. Please contact an administrator to regain access.",
			Blocked: true,
		})
	case errors.Is(err, app.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Incorrect ID number or pincode."})
	case errors.Is(err, app.ErrAccountNotActivated):
		writeJSON(w, http.StatusForbidden, errorBody{Message: "Account not yet activated. Complete onboarding first."})
	case errors.Is(err, app.ErrAlreadyOnboarded):
		writeJSON(w, http.StatusConflict, errorBody{Message: "Account is already activated."})
	case errors.Is(err, app.ErrAthleteExists):
		writeJSON(w, http.StatusConflict, errorBody{Message: "Athlete is already registered."})
	default:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Server error"})
	}
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// LoginHandler handles athlete ID + PIN login.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, "athlete_login", &req) {
		return
	}
	result, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, "athlete_login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AdminLoginHandler signs an administrator in with pincode and password.
func (h *Handlers) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminLoginRequest
	if !decodeJSON(w, r, "admin_login", &req) {
		return
	}
	result, err := h.accounts.AdminLogin(r.Context(), req)
	if err != nil {
		writeServiceError(w, "admin_login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LogoutHandler records an athlete sign-out.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetSessionClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Could not get session from context"})
		return
	}
	h.accounts.Logout(r.Context(), claims)
	writeJSON(w, http.StatusOK, messageBody{Message: "Logout successful."})
}

// ChangePinHandler replaces a PIN after verifying the current one.
func (h *Handlers) ChangePinHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePinRequest
	if !decodeJSON(w, r, "change_pincode", &req) {
		return
	}
	if err := h.accounts.ChangePin(r.Context(), req); err != nil {
		writeServiceError(w, "change_pincode", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Pincode updated successfully."})
}

// RegisterAthleteHandler lets an administrator create a pre-activation account.
func (h *Handlers) RegisterAthleteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetSessionClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Could not get session from context"})
		return
	}
	var req domain.RegisterAthleteRequest
	if !decodeJSON(w, r, "register_athlete", &req) {
		return
	}
	athlete, err := h.accounts.RegisterAthlete(r.Context(), claims.Subject, req)
	if err != nil {
		writeServiceError(w, "register_athlete", err)
		return
	}
	writeJSON(w, http.StatusCreated, athleteBody{
		Message: "Athlete registered successfully. They must create a pincode on first login.",
		Athlete: profileOf(athlete),
	})
}

// OnboardHandler completes first-time setup: PIN and recovery answers.
func (h *Handlers) OnboardHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.OnboardingRequest
	if !decodeJSON(w, r, "onboard_athlete", &req) {
		return
	}
	athlete, err := h.accounts.CompleteOnboarding(r.Context(), req)
	if err != nil {
		writeServiceError(w, "onboard_athlete", err)
		return
	}
	writeJSON(w, http.StatusOK, athleteBody{
		Message: "Account activated. You can now log in with your new pincode.",
		Athlete: profileOf(athlete),
	})
}
