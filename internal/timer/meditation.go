package timer

import (
	"fmt"
	"slices"
	"time"
)

// MeditationInterval is the countdown resolution.
const MeditationInterval = time.Second

// MeditationMinutes lists the session lengths the picker offers.
var MeditationMinutes = []int{1, 5, 10, 15, 20}

// ValidMeditationMinutes reports whether m is one of MeditationMinutes.
func ValidMeditationMinutes(m int) bool {
	return slices.Contains(MeditationMinutes, m)
}

// FormatClock renders remaining seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
