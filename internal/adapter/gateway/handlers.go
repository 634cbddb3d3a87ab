package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"parkd/internal/domain"
)

type plateRequest struct {
	Plate string `json:"plate"`
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	plate, ok := s.readPlate(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.RegisterPlate(r.Context(), plate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	plate, ok := s.readPlate(w, r)
	if !ok {
		return
	}
	ticket, err := s.svc.RequestExit(r.Context(), plate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	plate, ok := s.readPlate(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.ConfirmPayment(r.Context(), plate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := s.svc.History(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	slots, err := s.svc.Slots(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// readPlate decodes and validates the {"plate": "..."} request body.
func (s *Server) readPlate(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	var req plateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Plate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plate required"})
		return "", false
	}
	return req.Plate, true
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPlate), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyParked), errors.Is(err, domain.ErrNoPendingExit):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrLotFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrLinkDown):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
