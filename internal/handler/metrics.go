package handler

import (
	"log/slog"
	"net/http"

	"github.com/zzzxajak-prog/FitnessApp/internal/classify"
	"github.com/zzzxajak-prog/FitnessApp/internal/tracker"
)

// MetricsHandler serves the daily counters and the body readings of the
// logged-in user. All routes sit behind middleware.RequireSession.
//
// Mutating routes answer with the full State so a client can re-render
// from the response instead of issuing a second GET.
type MetricsHandler struct {
	logger *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{logger: logger}
}

// AmountRequest carries a single number: liters of water or steps.
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// CaloriesRequest is the body of POST /api/calories. Either Food (a name
// from GET /api/foods) or KcalPer100g must be given.
type CaloriesRequest struct {
	Food        string   `json:"food,omitempty"`
	KcalPer100g *float64 `json:"kcalPer100g,omitempty"`
	Grams       float64  `json:"grams"`
}

// CaloriesResponse reports what a calories request added.
type CaloriesResponse struct {
	Added         float64 `json:"added"`
	TotalCalories float64 `json:"totalCalories"`
}

// BodyRequest is the body of POST /api/body.
type BodyRequest struct {
	WeightKg float64 `json:"weightKg"`
	HeightCm float64 `json:"heightCm"`
}

// SleepRequest is the body of POST /api/sleep.
type SleepRequest struct {
	Hours float64 `json:"hours"`
}

// PulseRequest is the body of POST /api/pulse.
type PulseRequest struct {
	BPM float64 `json:"bpm"`
}

// ReadingResponse is a classified reading.
type ReadingResponse struct {
	Value float64 `json:"value"`
	classify.Result
}

// HandleState returns the dashboard.
//
// HTTP: GET /api/state
func (h *MetricsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// HandleAddWater adds liters (clamped at the daily goal).
//
// HTTP: POST /api/water
// REQUEST BODY: {"amount": 0.25}
func (h *MetricsHandler) HandleAddWater(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.AddWater(r.Context(), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// HandleSetWater sets the intake directly.
//
// HTTP: PUT /api/water
// REQUEST BODY: {"amount": 1.5}
func (h *MetricsHandler) HandleSetWater(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.SetWater(r.Context(), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// HandleFoods lists the food catalog. It needs no session.
//
// HTTP: GET /api/foods
func (h *MetricsHandler) HandleFoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tracker.Foods())
}

// HandleAddCalories adds a food by name or by explicit kcal/100g.
//
// HTTP: POST /api/calories
// REQUEST BODY: {"food": "Банан", "grams": 120} or {"kcalPer100g": 250, "grams": 80}
func (h *MetricsHandler) HandleAddCalories(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req CaloriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var added float64
	var err error
	switch {
	case req.Food != "":
		added, err = s.AddFood(r.Context(), req.Food, req.Grams)
	case req.KcalPer100g != nil:
		added, err = s.AddCalories(r.Context(), *req.KcalPer100g, req.Grams)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "either food or kcalPer100g is required",
			Field:   "food",
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CaloriesResponse{
		Added:         added,
		TotalCalories: s.State().Snapshot.TotalCalories,
	})
}

// HandleAddSteps adds steps.
//
// HTTP: POST /api/steps
// REQUEST BODY: {"amount": 500}
func (h *MetricsHandler) HandleAddSteps(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.AddSteps(r.Context(), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// HandleSimulateSteps starts the step animation in the background.
//
// HTTP: POST /api/steps/simulate
// RESPONSE: 202 Accepted {"state": "running", "total": 640}; 409 while one
// is already running.
func (h *MetricsHandler) HandleSimulateSteps(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if _, err := s.SimulateSteps(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.StepSimulation())
}

// HandleBody records weight and height and returns the BMI reading.
//
// HTTP: POST /api/body
// REQUEST BODY: {"weightKg": 70, "heightCm": 175}
func (h *MetricsHandler) HandleBody(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req BodyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	body, err := s.SetWeightHeight(r.Context(), req.WeightKg, req.HeightCm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadingResponse{Value: body.BMI, Result: body.BMIResult})
}

// HandleSleep classifies last night's sleep.
//
// HTTP: POST /api/sleep
// REQUEST BODY: {"hours": 7.5}
func (h *MetricsHandler) HandleSleep(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req SleepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.RecordSleep(r.Context(), req.Hours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadingResponse{Value: req.Hours, Result: res})
}

// HandlePulse classifies a resting pulse.
//
// HTTP: POST /api/pulse
// REQUEST BODY: {"bpm": 72}
func (h *MetricsHandler) HandlePulse(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req PulseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.RecordPulse(req.BPM)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadingResponse{Value: req.BPM, Result: res})
}
