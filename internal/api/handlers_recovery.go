package api

import (
	"net/http"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

// ForgotPinStartHandler returns the recovery questions for an athlete.
func (h *Handlers) ForgotPinStartHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPinStartRequest
	if !decodeJSON(w, r, "forgot_pin_start", &req) {
		return
	}
	result, err := h.recovery.Initiate(r.Context(), req.IDNumber)
	if err != nil {
		writeServiceError(w, "forgot_pin_start", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ForgotPinResetHandler verifies the answers and stores the new PIN.
func (h *Handlers) ForgotPinResetHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPinResetRequest
	if !decodeJSON(w, r, "forgot_pin_reset", &req) {
		return
	}
	result, err := h.recovery.Reset(r.Context(), req)
	if err != nil {
		writeServiceError(w, "forgot_pin_reset", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
