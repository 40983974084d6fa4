package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/classify"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/timer"
	"github.com/zzzxajak-prog/FitnessApp/internal/tracker"
)

// Session is one logged-in user's view of the metrics state.
//
// Every method that changes the snapshot saves it before returning, while
// still holding the session lock, so saves happen in the order the changes
// did: a load never observes mutation N-1 once mutation N has returned.
//
// If the save fails the change stays in memory (it is still the user's
// latest data) and the method returns a StorageWriteFailure. The next
// successful save writes it out.
type Session struct {
	ID        string
	StartedAt time.Time

	ctl *Controller

	mu      sync.Mutex
	closed  bool // set by stop; a replaced or logged-out session rejects changes
	tracker *tracker.Tracker
	rng     *rand.Rand

	steps      *timer.Task
	stepsTotal int

	meditation        *timer.Task
	meditationMinutes int
	remaining         int // seconds left on the meditation clock
}

func newSession(ctl *Controller, id string, t *tracker.Tracker, rng *rand.Rand) *Session {
	return &Session{
		ID:         id,
		StartedAt:  time.Now(),
		ctl:        ctl,
		tracker:    t,
		rng:        rng,
		steps:      timer.NewTask("step simulation", ctl.cfg.StepInterval),
		meditation: timer.NewTask("meditation", ctl.cfg.MeditationInterval),
	}
}

// State is everything a caller needs to render the dashboard.
type State struct {
	SessionID     string         `json:"sessionId"`
	Snapshot      model.Snapshot `json:"snapshot"`
	Body          tracker.Body   `json:"body"`
	WaterGoal     float64        `json:"waterGoal"`
	WaterProgress float64        `json:"waterProgress"`
}

// Username is the logged-in user.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Username()
}

// State returns a copy of the current metrics.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID:     s.ID,
		Snapshot:      s.tracker.Snapshot(),
		Body:          s.tracker.Body(),
		WaterGoal:     model.WaterGoal,
		WaterProgress: s.tracker.WaterProgress(),
	}
}

// Subscribe registers fn to receive the snapshot after every change.
// fn runs with the session locked and must not call back into the Session.
func (s *Session) Subscribe(fn func(model.Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unsub := s.tracker.Subscribe(fn)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		unsub()
	}
}

// mutate runs fn against the tracker and saves the snapshot if fn
// succeeded. Validation errors from fn are returned as-is and nothing is
// saved.
func (s *Session) mutate(ctx context.Context, op string, fn func(t *tracker.Tracker) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSessionEnded()
	}
	if err := fn(s.tracker); err != nil {
		return err
	}
	return s.saveLocked(ctx, op)
}

// errSessionEnded is returned to holders of a Session that Logout or a
// later Login has ended. Its snapshot must not overwrite the new owner's.
func errSessionEnded() error {
	return apperror.AuthFailed("session", "session ended")
}

func (s *Session) saveLocked(ctx context.Context, op string) error {
	if err := s.ctl.snaps.SaveSnapshot(ctx, s.tracker.Snapshot()); err != nil {
		s.ctl.logger.Error("saving user data failed",
			slog.String("session", s.ID),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return apperror.StorageWriteFailed("user data", err)
	}
	s.ctl.logger.Debug("user data saved", slog.String("session", s.ID), slog.String("op", op))
	return nil
}

// =========================================================================
// WATER
// =========================================================================

// AddWater adds liters, clamped at the daily goal.
func (s *Session) AddWater(ctx context.Context, liters float64) error {
	return s.mutate(ctx, "add water", func(t *tracker.Tracker) error {
		return t.AddWater(liters)
	})
}

// SetWater sets the intake directly (the slider); 0 ≤ liters ≤ goal.
func (s *Session) SetWater(ctx context.Context, liters float64) error {
	return s.mutate(ctx, "set water", func(t *tracker.Tracker) error {
		return t.SetWater(liters)
	})
}

// =========================================================================
// CALORIES
// =========================================================================

// AddCalories adds kcalPer100g*grams/100 and returns the kcal added.
func (s *Session) AddCalories(ctx context.Context, kcalPer100g, grams float64) (float64, error) {
	var added float64
	err := s.mutate(ctx, "add calories", func(t *tracker.Tracker) error {
		var err error
		added, err = t.AddCalories(kcalPer100g, grams)
		return err
	})
	return added, err
}

// AddFood adds grams of a catalog food and returns the kcal added.
func (s *Session) AddFood(ctx context.Context, food string, grams float64) (float64, error) {
	var added float64
	err := s.mutate(ctx, "add food", func(t *tracker.Tracker) error {
		var err error
		added, err = t.AddFood(food, grams)
		return err
	})
	return added, err
}

// =========================================================================
// STEPS
// =========================================================================

// AddSteps adds n steps.
func (s *Session) AddSteps(ctx context.Context, n float64) error {
	return s.mutate(ctx, "add steps", func(t *tracker.Tracker) error {
		return t.AddSteps(n)
	})
}

// StepSimulation describes the state of the synthetic step animation.
type StepSimulation struct {
	State timer.State `json:"state"`
	Total int         `json:"total"`
}

// SimulateSteps starts the step animation in the background and returns
// the sampled total. The total is added in timer.StepTicks increments (see
// timer.PlanSteps), each going through AddSteps and therefore saved.
//
// Only one simulation runs at a time; a second call while one is running
// returns a Conflict error. The simulation outlives ctx's cancellation (an
// HTTP request finishing must not stop it) but stops on Logout.
func (s *Session) SimulateSteps(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errSessionEnded()
	}
	if s.steps.State() == timer.StateRunning {
		return 0, apperror.Conflict("step simulation", s.ID)
	}

	total := timer.RandomStepTotal(s.rng)
	plan := timer.PlanSteps(total)
	runCtx := context.WithoutCancel(ctx)

	tick := func(i int) error {
		return s.AddSteps(runCtx, float64(plan[i]))
	}
	done := func(final timer.State, err error) {
		attrs := []any{slog.String("session", s.ID), slog.Int("total", total), slog.String("state", string(final))}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		s.ctl.logger.Info("step simulation finished", attrs...)
	}

	if err := s.steps.Start(runCtx, len(plan), tick, done); err != nil {
		return 0, err
	}
	s.stepsTotal = total
	return total, nil
}

// StepSimulation reports the last (or current) simulation.
func (s *Session) StepSimulation() StepSimulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StepSimulation{State: s.steps.State(), Total: s.stepsTotal}
}

// =========================================================================
// BODY READINGS
// =========================================================================
//
// The readings themselves live in memory (the snapshot format has no fields
// for them), but weight/height and sleep are tracking actions like any
// other and write the snapshot. A pulse check only classifies.

// SetWeightHeight records weight and height, saves, and returns the
// updated readings, including the BMI and its advice.
func (s *Session) SetWeightHeight(ctx context.Context, weightKg, heightCm float64) (tracker.Body, error) {
	var body tracker.Body
	err := s.mutate(ctx, "set weight and height", func(t *tracker.Tracker) error {
		if _, err := t.SetWeightHeight(weightKg, heightCm); err != nil {
			return err
		}
		body = t.Body()
		return nil
	})
	return body, err
}

// RecordSleep records last night's sleep, saves, and returns its
// classification.
func (s *Session) RecordSleep(ctx context.Context, hours float64) (classify.Result, error) {
	var res classify.Result
	err := s.mutate(ctx, "record sleep", func(t *tracker.Tracker) error {
		var err error
		res, err = t.RecordSleep(hours)
		return err
	})
	return res, err
}

// RecordPulse records a resting pulse and returns its classification.
func (s *Session) RecordPulse(bpm float64) (classify.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return classify.Result{}, errSessionEnded()
	}
	return s.tracker.RecordPulse(bpm)
}

// =========================================================================
// GOALS
// =========================================================================

// AddGoal appends a goal; its advice is fixed at creation.
func (s *Session) AddGoal(ctx context.Context, desc string, value float64, period model.Period) (model.Goal, error) {
	var goal model.Goal
	err := s.mutate(ctx, "add goal", func(t *tracker.Tracker) error {
		var err error
		goal, err = t.AddGoal(desc, value, period)
		return err
	})
	return goal, err
}

// ListGoals returns the goals in the order they were added.
func (s *Session) ListGoals() []model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.ListGoals()
}

// =========================================================================
// MEDITATION
// =========================================================================

// Meditation describes the meditation countdown.
type Meditation struct {
	State     timer.State `json:"state"`
	Minutes   int         `json:"minutes"`
	Remaining int         `json:"remainingSeconds"`
	Clock     string      `json:"clock"`
}

// StartMeditation starts a countdown of minutes (one of
// timer.MeditationMinutes). Starting while a countdown is running returns
// a Conflict error; use CancelMeditation first.
func (s *Session) StartMeditation(ctx context.Context, minutes int) error {
	if !timer.ValidMeditationMinutes(minutes) {
		return apperror.ValidationFailed("minutes", "meditation length must be 1, 5, 10, 15 or 20 minutes")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSessionEnded()
	}
	if s.meditation.State() == timer.StateRunning {
		return apperror.Conflict("meditation", s.ID)
	}

	seconds := minutes * 60
	tick := func(i int) error {
		s.mu.Lock()
		s.remaining = seconds - i
		s.mu.Unlock()
		return nil
	}
	done := func(final timer.State, _ error) {
		s.mu.Lock()
		if final == timer.StateCompleted {
			s.remaining = 0
		}
		s.mu.Unlock()
		s.ctl.logger.Info("meditation finished",
			slog.String("session", s.ID),
			slog.Int("minutes", minutes),
			slog.String("state", string(final)),
		)
	}

	if err := s.meditation.Start(context.WithoutCancel(ctx), seconds, tick, done); err != nil {
		return err
	}
	s.meditationMinutes = minutes
	s.remaining = seconds
	return nil
}

// CancelMeditation stops a running countdown and waits until it has
// stopped, so a following Meditation() no longer reports it as running.
// It is a no-op when nothing is running.
func (s *Session) CancelMeditation(ctx context.Context) error {
	s.meditation.Cancel()
	_, err := s.meditation.Wait(ctx)
	return err
}

// Meditation reports the countdown.
func (s *Session) Meditation() Meditation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Meditation{
		State:     s.meditation.State(),
		Minutes:   s.meditationMinutes,
		Remaining: s.remaining,
		Clock:     timer.FormatClock(s.remaining),
	}
}

// stop cancels both timers, marks the session ended and waits for the
// timers to exit, so nothing saves for this session after it returns. Called on logout and when another login replaces this
// session. It must not be called with s.mu held: a tick in flight needs it.
func (s *Session) stop() {
	s.steps.Cancel()
	s.meditation.Cancel()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	_, _ = s.steps.Wait(context.Background())
	_, _ = s.meditation.Wait(context.Background())
}
