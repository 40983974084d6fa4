// Package model defines the data structures used throughout the application.
//
// The JSON tags on Snapshot and Goal ARE the on-disk format of
// data/user_data.json, so renaming a tag breaks files written by earlier
// versions. Keep them snake_case.
package model

// WaterGoal is the daily water target in liters. It is a process-wide
// constant and is never persisted.
const WaterGoal = 2.0

// GuestUsername is the owner of the default snapshot returned when nothing
// has been saved yet.
const GuestUsername = "Guest"

// Snapshot is the persisted unit of the metrics state: the latest values
// for one user. Only this snapshot is stored, there is no history.
type Snapshot struct {
	Username      string  `json:"username"`
	WaterIntake   float64 `json:"water_intake"`   // liters, 0 ≤ v ≤ WaterGoal
	TotalCalories float64 `json:"total_calories"` // kcal
	Steps         float64 `json:"steps"`
	Goals         []Goal  `json:"goals"`
}

// DefaultSnapshot returns the empty Guest snapshot used when storage has
// nothing (or nothing readable) to offer.
func DefaultSnapshot() Snapshot {
	return NewSnapshot(GuestUsername)
}

// NewSnapshot returns a zeroed snapshot owned by username.
//
// Goals is an empty, non-nil slice so it serializes as [] rather than null.
func NewSnapshot(username string) Snapshot {
	return Snapshot{
		Username: username,
		Goals:    []Goal{},
	}
}

// Clone returns a deep copy; the goal slice is not shared.
func (s Snapshot) Clone() Snapshot {
	goals := make([]Goal, len(s.Goals))
	copy(goals, s.Goals)
	s.Goals = goals
	return s
}
