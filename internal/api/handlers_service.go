package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ServiceRequestHandler starts a sanitizing cycle. studentId defaults to the session subject.
func (h *Handlers) ServiceRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ServiceRequest
	if !decodeJSON(w, r, "service_request", &req) {
		return
	}
	if strings.TrimSpace(req.StudentID) == "" {
		if claims, ok := GetSessionClaims(r.Context()); ok {
			req.StudentID = claims.Subject
		}
	}

	tx, err := h.cycle.Start(r.Context(), req.StudentID, req.ServiceType)
	if err != nil {
		writeServiceError(w, "service_request", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ServiceResponse{Message: "Service started", Transaction: tx})
}

// ServiceStatusHandler looks up a single transaction.
func (h *Handlers) ServiceStatusHandler(w http.ResponseWriter, r *http.Request) {
	tx, err := h.cycle.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "service_status", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ServiceCompleteHandler marks a transaction completed. Repeated calls are accepted.
func (h *Handlers) ServiceCompleteHandler(w http.ResponseWriter, r *http.Request) {
	tx, err := h.cycle.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "service_complete", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ServiceResponse{Message: "Service completed", Transaction: tx})
}

// MachineStatusHandler returns the live machine view with the active countdown.
func (h *Handlers) MachineStatusHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.cycle.LiveMachineStatus(r.Context())
	if err != nil {
		writeServiceError(w, "machine_status", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RecordMachineStateHandler accepts telemetry from the machine controller.
func (h *Handlers) RecordMachineStateHandler(w http.ResponseWriter, r *http.Request) {
	var event domain.MachineStateEvent
	if !decodeJSON(w, r, "record_machine_state", &event) {
		return
	}
	state, err := h.cycle.RecordMachineState(r.Context(), event)
	if err != nil {
		writeServiceError(w, "record_machine_state", err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// MachineStreamHandler pushes machine status as Server-Sent Events until the client
// disconnects. Comment frames keep idle proxies from closing the connection.
func (h *Handlers) MachineStreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sub := h.feed.Subscribe(ctx)
	defer sub.Cancel()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	log.Printf("level=info component=api endpoint=machine_stream msg=\"subscriber connected\" subscribers=%d", h.feed.Subscribers())
	for {
		select {
		case <-ctx.Done():
			log.Println("level=info component=api endpoint=machine_stream msg=\"subscriber disconnected\"")
			return
		case view, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(view)
			if err != nil {
				log.Printf("level=error component=api endpoint=machine_stream msg=\"status encode failed\" err=%v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
