package handler

import (
	"log/slog"
	"net/http"

	"github.com/zzzxajak-prog/FitnessApp/internal/model"
)

// GoalHandler lists and adds goals.
type GoalHandler struct {
	logger *slog.Logger
}

// NewGoalHandler creates a GoalHandler.
func NewGoalHandler(logger *slog.Logger) *GoalHandler {
	return &GoalHandler{logger: logger}
}

// GoalRequest is the body of POST /api/goals. Period may be omitted, in
// which case "1 месяц" is used.
type GoalRequest struct {
	Desc   string       `json:"desc"`
	Value  float64      `json:"value"`
	Period model.Period `json:"period,omitempty"`
}

// GoalsResponse wraps the list so the periods a client may offer travel
// with it.
type GoalsResponse struct {
	Goals   []model.Goal   `json:"goals"`
	Periods []model.Period `json:"periods"`
}

// HandleList returns every goal in the order it was added.
//
// HTTP: GET /api/goals
func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, GoalsResponse{Goals: s.ListGoals(), Periods: model.Periods()})
}

// HandleCreate adds a goal. Its advice is derived from the description
// once, here, and never changes afterwards.
//
// HTTP: POST /api/goals
// REQUEST BODY: {"desc": "сбросить вес", "value": 5, "period": "3 месяца"}
// RESPONSE: 201 with the stored goal
func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	goal, err := s.AddGoal(r.Context(), req.Desc, req.Value, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("goal added",
		slog.String("username", s.Username()),
		slog.String("period", string(goal.Period)),
	)
	writeJSON(w, http.StatusCreated, goal)
}
