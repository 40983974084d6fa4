package handler

import (
	"log/slog"
	"net/http"

	"github.com/zzzxajak-prog/FitnessApp/internal/service"
	"github.com/zzzxajak-prog/FitnessApp/internal/timer"
)

// MeditationHandler drives the meditation countdown.
type MeditationHandler struct {
	logger *slog.Logger
}

// NewMeditationHandler creates a MeditationHandler.
func NewMeditationHandler(logger *slog.Logger) *MeditationHandler {
	return &MeditationHandler{logger: logger}
}

// MeditationRequest is the body of POST /api/meditation.
type MeditationRequest struct {
	Minutes int `json:"minutes"`
}

// MeditationOptions is returned alongside the status so a client can build
// its duration picker.
type MeditationOptions struct {
	Minutes []int `json:"minutes"`
}

// MeditationStatusResponse is the body of GET /api/meditation.
type MeditationStatusResponse struct {
	Status  service.Meditation `json:"status"`
	Options MeditationOptions  `json:"options"`
}

// HandleStart starts a countdown.
//
// HTTP: POST /api/meditation
// REQUEST BODY: {"minutes": 5}
// RESPONSE: 202 with the countdown status; 409 if one is already running.
func (h *MeditationHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req MeditationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.StartMeditation(r.Context(), req.Minutes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Meditation())
}

// HandleStatus reports the countdown, e.g. {"state":"running","clock":"04:12",...}.
//
// HTTP: GET /api/meditation
func (h *MeditationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MeditationStatusResponse{
		Status:  s.Meditation(),
		Options: MeditationOptions{Minutes: timer.MeditationMinutes},
	})
}

// HandleCancel stops a running countdown.
//
// HTTP: DELETE /api/meditation
// RESPONSE: 200 with the status after cancelling (a no-op when idle).
func (h *MeditationHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := s.CancelMeditation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Meditation())
}
