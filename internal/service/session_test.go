package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/classify"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/timer"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =========================================================================
// SAVE-AFTER-MUTATION
// =========================================================================

func TestSession_EveryMutationIsSaved(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	require.NoError(t, s.AddWater(ctx, 0.5))
	require.NoError(t, s.SetWater(ctx, 1.25))
	_, err := s.AddCalories(ctx, 200, 150)
	require.NoError(t, err)
	_, err = s.AddFood(ctx, "Яблоко", 100)
	require.NoError(t, err)
	require.NoError(t, s.AddSteps(ctx, 500))
	_, err = s.AddGoal(ctx, "lose weight", 3, model.PeriodMonth)
	require.NoError(t, err)

	saved, saves := store.saved()
	assert.Equal(t, 6, saves)
	assert.Equal(t, s.State().Snapshot, saved)
	assert.Equal(t, "alice", saved.Username)
	assert.Equal(t, 1.25, saved.WaterIntake)
	assert.Equal(t, 500.0, saved.Steps)
	require.Len(t, saved.Goals, 1)
}

func TestSession_ValidationErrorsSaveNothing(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	assert.ErrorIs(t, s.AddWater(ctx, -1), apperror.ErrValidation)
	assert.ErrorIs(t, s.SetWater(ctx, 2.5), apperror.ErrValidation)
	_, err := s.AddCalories(ctx, -5, 100)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = s.AddFood(ctx, "Pizza", 100)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, s.AddSteps(ctx, -10), apperror.ErrValidation)
	_, err = s.AddGoal(ctx, "", 1, model.PeriodWeek)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, saves := store.saved()
	assert.Zero(t, saves)
}

func TestSession_SaveFailureKeepsStateInMemory(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()
	store.failSnapshotSaves(errors.New("disk full"))

	err := s.AddWater(ctx, 0.5)
	assert.ErrorIs(t, err, apperror.ErrStorageWrite)
	assert.Equal(t, 0.5, s.State().Snapshot.WaterIntake, "memory stays authoritative")

	// Once the disk recovers the next save carries the earlier change too.
	store.failSnapshotSaves(nil)
	require.NoError(t, s.AddSteps(ctx, 10))
	saved, _ := store.saved()
	assert.Equal(t, 0.5, saved.WaterIntake)
	assert.Equal(t, 10.0, saved.Steps)
}

func TestSession_LaterLoadObservesLastMutation(t *testing.T) {
	store := newMemStore()
	c, s := loggedIn(t, store)
	ctx := context.Background()

	require.NoError(t, s.AddWater(ctx, 0.1))
	require.NoError(t, s.AddWater(ctx, 0.25))
	c.Logout()

	s2, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.InDelta(t, 0.35, s2.State().Snapshot.WaterIntake, 1e-9)
}

func TestSession_State(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	require.NoError(t, s.AddWater(context.Background(), 1.0))

	st := s.State()
	assert.Equal(t, s.ID, st.SessionID)
	assert.Equal(t, model.WaterGoal, st.WaterGoal)
	assert.InDelta(t, 0.5, st.WaterProgress, 1e-9)
}

func TestSession_Subscribe(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	var got []float64
	unsub := s.Subscribe(func(snap model.Snapshot) { got = append(got, snap.Steps) })
	require.NoError(t, s.AddSteps(ctx, 100))
	require.NoError(t, s.AddSteps(ctx, 100))
	unsub()
	require.NoError(t, s.AddSteps(ctx, 100))

	assert.Equal(t, []float64{100, 200}, got)
}

// =========================================================================
// BODY READINGS
// =========================================================================

func TestSession_BodyReadingsAreSaved(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	body, err := s.SetWeightHeight(ctx, 70, 175)
	require.NoError(t, err)
	assert.InDelta(t, 22.857, body.BMI, 0.001)
	assert.Equal(t, classify.BMINormal, body.BMIResult.Band)
	_, saves := store.saved()
	assert.Equal(t, 1, saves)

	sleep, err := s.RecordSleep(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, classify.SleepInsufficient, sleep.Band)
	_, saves = store.saved()
	assert.Equal(t, 2, saves)

	// A pulse check only classifies.
	pulse, err := s.RecordPulse(110)
	require.NoError(t, err)
	assert.Equal(t, classify.PulseHigh, pulse.Band)
	assert.Equal(t, 110.0, s.State().Body.PulseBPM)

	_, err = s.SetWeightHeight(ctx, 70, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = s.RecordSleep(ctx, 25)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, saves = store.saved()
	assert.Equal(t, 2, saves)
}

func TestSession_BodyReadingSaveFailureIsReported(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()
	store.failSnapshotSaves(errors.New("disk full"))

	body, err := s.SetWeightHeight(ctx, 70, 175)
	assert.ErrorIs(t, err, apperror.ErrStorageWrite)
	assert.InDelta(t, 22.857, body.BMI, 0.001, "the reading is kept in memory")

	_, err = s.RecordSleep(ctx, 8)
	assert.ErrorIs(t, err, apperror.ErrStorageWrite)
	assert.Equal(t, 8.0, s.State().Body.SleepHours)
}

// =========================================================================
// GOALS
// =========================================================================

func TestSession_Goals(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	g, err := s.AddGoal(ctx, "набрать вес", 4, "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPeriod, g.Period)
	assert.Equal(t, classify.ClassifyGoal("набрать вес").Advice, g.Advice)

	_, err = s.AddGoal(ctx, "run 5k", 1, model.PeriodWeek)
	require.NoError(t, err)

	goals := s.ListGoals()
	require.Len(t, goals, 2)
	assert.Equal(t, "набрать вес", goals[0].Desc)
	assert.Equal(t, "run 5k", goals[1].Desc)
}

// =========================================================================
// STEP SIMULATION
// =========================================================================

func TestSimulateSteps_AddsExactlyTheSampledTotal(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()
	require.NoError(t, s.AddSteps(ctx, 1000))

	total, err := s.SimulateSteps(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, timer.MinSimulatedSteps)
	assert.LessOrEqual(t, total, timer.MaxSimulatedSteps)

	state, err := s.steps.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, timer.StateCompleted, state)
	assert.Equal(t, StepSimulation{State: timer.StateCompleted, Total: total}, s.StepSimulation())

	assert.Equal(t, float64(1000+total), s.State().Snapshot.Steps)
	saved, saves := store.saved()
	assert.Equal(t, float64(1000+total), saved.Steps)
	assert.Equal(t, 1+timer.StepTicks, saves, "every increment is saved")
}

func TestSimulateSteps_SecondStartConflicts(t *testing.T) {
	store := newMemStore()
	c := NewController(store, store, newTestController(t, store).passwords, testLogger(), Config{
		StepInterval:       time.Hour,
		MeditationInterval: time.Hour,
	})
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))
	s, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = s.SimulateSteps(ctx)
	require.NoError(t, err)
	_, err = s.SimulateSteps(ctx)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	c.Logout()
	state, err := s.steps.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, timer.StateCancelled, state)
}

func TestSimulateSteps_SurvivesCallerContext(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.SimulateSteps(ctx)
	require.NoError(t, err)
	cancel() // e.g. the HTTP request that started it returned

	state, err := s.steps.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, timer.StateCompleted, state)
}

func TestSimulateSteps_SaveFailureStopsSimulation(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	store.failSnapshotSaves(errors.New("read-only filesystem"))

	_, err := s.SimulateSteps(context.Background())
	require.NoError(t, err)

	state, err := s.steps.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, timer.StateFailed, state)
	assert.ErrorIs(t, s.steps.Err(), apperror.ErrStorageWrite)
}

// =========================================================================
// MEDITATION
// =========================================================================

func TestMeditation_RunsToZero(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)

	assert.Equal(t, timer.StateIdle, s.Meditation().State)
	require.NoError(t, s.StartMeditation(context.Background(), 1))

	state, err := s.meditation.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, timer.StateCompleted, state)

	m := s.Meditation()
	assert.Equal(t, Meditation{State: timer.StateCompleted, Minutes: 1, Remaining: 0, Clock: "00:00"}, m)
}

func TestMeditation_RejectsUnknownLength(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)

	for _, m := range []int{0, 3, -5, 60} {
		assert.ErrorIs(t, s.StartMeditation(context.Background(), m), apperror.ErrValidation, "minutes=%d", m)
	}
}

func TestMeditation_ConflictAndCancel(t *testing.T) {
	store := newMemStore()
	c := NewController(store, store, newTestController(t, store).passwords, testLogger(), Config{
		StepInterval:       time.Hour,
		MeditationInterval: time.Hour,
	})
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))
	s, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	t.Cleanup(c.Logout)

	require.NoError(t, s.StartMeditation(ctx, 5))
	m := s.Meditation()
	assert.Equal(t, timer.StateRunning, m.State)
	assert.Equal(t, "05:00", m.Clock)

	assert.ErrorIs(t, s.StartMeditation(ctx, 10), apperror.ErrConflict)

	require.NoError(t, s.CancelMeditation(waitCtx(t)))
	assert.Equal(t, timer.StateCancelled, s.Meditation().State)

	// After a cancel a new countdown can start.
	require.NoError(t, s.StartMeditation(ctx, 10))
	assert.Equal(t, 10, s.Meditation().Minutes)
}

func TestSession_ConcurrentMutations(t *testing.T) {
	store := newMemStore()
	_, s := loggedIn(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddSteps(ctx, 5))
		}()
	}
	wg.Wait()

	assert.Equal(t, 100.0, s.State().Snapshot.Steps)
	saved, saves := store.saved()
	assert.Equal(t, 20, saves)
	assert.Equal(t, 100.0, saved.Steps, "the last save holds the final value")
}
