// Package tracker holds the mutable metrics state of one session.
//
// The Tracker knows nothing about files, HTTP or widgets. It enforces the
// rules of each counter (water is clamped to the daily goal, calories and
// steps only grow) and notifies subscribers after every successful change.
// Persisting the result is the caller's job; the service package saves a
// snapshot after each mutation that returns a nil error.
//
// A Tracker is not safe for concurrent use. The owning session serializes
// access.
package tracker

import (
	"math"
	"strings"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/classify"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
)

// Quick-add presets offered by the desktop app's buttons.
var (
	WaterPresets = []float64{0.1, 0.25, 0.5, 1.0}
	StepPresets  = []float64{100, 500, 1000}
)

// Upper bound accepted by RecordSleep.
const maxSleepHours = 24

// Body holds the latest body and health readings. They live only in
// memory: the snapshot format has no room for them.
type Body struct {
	WeightKg   float64         `json:"weightKg,omitempty"`
	HeightCm   float64         `json:"heightCm,omitempty"`
	BMI        float64         `json:"bmi,omitempty"`
	BMIResult  classify.Result `json:"bmiResult,omitzero"`
	SleepHours float64         `json:"sleepHours,omitempty"`
	Sleep      classify.Result `json:"sleep,omitzero"`
	PulseBPM   float64         `json:"pulseBpm,omitempty"`
	Pulse      classify.Result `json:"pulse,omitzero"`
}

// Tracker is the in-memory metrics state plus the goal list.
type Tracker struct {
	snap    model.Snapshot
	body    Body
	subs    map[int]func(model.Snapshot)
	nextSub int
}

// New returns a Tracker starting from a copy of snap.
func New(snap model.Snapshot) *Tracker {
	t := &Tracker{subs: make(map[int]func(model.Snapshot))}
	t.Restore(snap)
	return t
}

// Restore replaces the state with a copy of snap. Values that violate the
// invariants (negative counters, water above the goal) are clamped, so a
// hand-edited file cannot put the tracker in an impossible state.
func (t *Tracker) Restore(snap model.Snapshot) {
	s := snap.Clone()
	s.WaterIntake = clamp(s.WaterIntake, 0, model.WaterGoal)
	s.TotalCalories = math.Max(finiteOrZero(s.TotalCalories), 0)
	s.Steps = math.Max(finiteOrZero(s.Steps), 0)
	t.snap = s
	t.body = Body{}
}

// Snapshot returns a deep copy of the persistable state.
func (t *Tracker) Snapshot() model.Snapshot {
	return t.snap.Clone()
}

// Body returns the latest in-memory readings.
func (t *Tracker) Body() Body {
	return t.body
}

// Username is the owner of the state.
func (t *Tracker) Username() string {
	return t.snap.Username
}

// SetUsername changes the owner recorded in the snapshot.
func (t *Tracker) SetUsername(name string) {
	t.snap.Username = name
}

// Subscribe registers fn to be called with a fresh snapshot after every
// successful mutation. The returned function removes the subscription.
func (t *Tracker) Subscribe(fn func(model.Snapshot)) (unsubscribe func()) {
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() { delete(t.subs, id) }
}

func (t *Tracker) notify() {
	for _, fn := range t.subs {
		fn(t.Snapshot())
	}
}

// WaterIntake returns liters drunk so far.
func (t *Tracker) WaterIntake() float64 { return t.snap.WaterIntake }

// WaterProgress returns intake as a fraction of the goal, in [0, 1].
func (t *Tracker) WaterProgress() float64 {
	return t.snap.WaterIntake / model.WaterGoal
}

// AddWater adds amount liters, clamping the total at the daily goal.
// Overflow past the goal is dropped without an error.
func (t *Tracker) AddWater(amount float64) error {
	if !positive(amount) {
		return apperror.ValidationFailed("amount", "water amount must be a positive number")
	}
	t.snap.WaterIntake = math.Min(t.snap.WaterIntake+amount, model.WaterGoal)
	t.notify()
	return nil
}

// SetWater overwrites the intake. Values outside [0, goal] are rejected and
// leave the state unchanged.
func (t *Tracker) SetWater(value float64) error {
	if math.IsNaN(value) || value < 0 || value > model.WaterGoal {
		return apperror.ValidationFailed("water", "water must be between 0 and 2 L")
	}
	t.snap.WaterIntake = value
	t.notify()
	return nil
}

// TotalCalories returns kcal consumed so far.
func (t *Tracker) TotalCalories() float64 { return t.snap.TotalCalories }

// AddCalories adds the energy of amountG grams of a food with
// kcalPer100g and returns the kcal added.
func (t *Tracker) AddCalories(kcalPer100g, amountG float64) (float64, error) {
	if !nonNegative(kcalPer100g) {
		return 0, apperror.ValidationFailed("kcalPer100g", "calories per 100 g must be zero or more")
	}
	if !nonNegative(amountG) {
		return 0, apperror.ValidationFailed("amount", "amount in grams must be zero or more")
	}
	kcal := kcalPer100g * amountG / 100
	t.snap.TotalCalories += kcal
	t.notify()
	return kcal, nil
}

// AddFood looks name up in the food catalog and adds amountG grams of it.
func (t *Tracker) AddFood(name string, amountG float64) (float64, error) {
	food, ok := LookupFood(name)
	if !ok {
		return 0, apperror.NotFound("food", name)
	}
	return t.AddCalories(food.KcalPer100g, amountG)
}

// Steps returns steps walked so far.
func (t *Tracker) Steps() float64 { return t.snap.Steps }

// AddSteps adds amount steps. Zero is accepted and still notifies.
func (t *Tracker) AddSteps(amount float64) error {
	if !nonNegative(amount) {
		return apperror.ValidationFailed("steps", "steps must be zero or more")
	}
	t.snap.Steps += amount
	t.notify()
	return nil
}

// SetWeightHeight records weight and height and returns the BMI.
func (t *Tracker) SetWeightHeight(weightKg, heightCm float64) (float64, error) {
	if !positive(weightKg) {
		return 0, apperror.ValidationFailed("weight", "weight must be a positive number")
	}
	if !positive(heightCm) {
		return 0, apperror.ValidationFailed("height", "height must be a positive number")
	}
	bmi, _ := classify.BMI(weightKg, heightCm)
	t.body.WeightKg = weightKg
	t.body.HeightCm = heightCm
	t.body.BMI = bmi
	t.body.BMIResult = classify.ClassifyBMI(bmi)
	t.notify()
	return bmi, nil
}

// RecordSleep stores last night's sleep and returns its band.
func (t *Tracker) RecordSleep(hours float64) (classify.Result, error) {
	if math.IsNaN(hours) || hours < 0 || hours > maxSleepHours {
		return classify.Result{}, apperror.ValidationFailed("hours", "sleep must be between 0 and 24 hours")
	}
	res := classify.ClassifySleep(hours)
	t.body.SleepHours = hours
	t.body.Sleep = res
	t.notify()
	return res, nil
}

// RecordPulse stores a resting pulse and returns its band.
func (t *Tracker) RecordPulse(bpm float64) (classify.Result, error) {
	if !positive(bpm) {
		return classify.Result{}, apperror.ValidationFailed("bpm", "pulse must be a positive number")
	}
	res := classify.ClassifyPulse(bpm)
	t.body.PulseBPM = bpm
	t.body.Pulse = res
	t.notify()
	return res, nil
}

// AddGoal validates and appends a goal. Advice is computed here, once.
// An empty period falls back to model.DefaultPeriod.
func (t *Tracker) AddGoal(desc string, value float64, period model.Period) (model.Goal, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return model.Goal{}, apperror.ValidationFailed("desc", "goal description is required")
	}
	if !positive(value) {
		return model.Goal{}, apperror.ValidationFailed("value", "goal value must be greater than zero")
	}
	if period == "" {
		period = model.DefaultPeriod
	}
	if !period.Valid() {
		return model.Goal{}, apperror.ValidationFailed("period", "period must be one of: 1 неделя, 1 месяц, 3 месяца")
	}

	g := model.Goal{
		Desc:   desc,
		Value:  value,
		Period: period,
		Advice: classify.ClassifyGoal(desc).Advice,
	}
	t.snap.Goals = append(t.snap.Goals, g)
	t.notify()
	return g, nil
}

// ListGoals returns the goals in insertion order. The slice is a copy.
func (t *Tracker) ListGoals() []model.Goal {
	out := make([]model.Goal, len(t.snap.Goals))
	copy(out, t.snap.Goals)
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(finiteOrZero(v), lo), hi)
}
