package timer

import (
	"math/rand/v2"
	"time"
)

// Step simulation parameters, taken from the desktop app.
const (
	MinSimulatedSteps = 100
	MaxSimulatedSteps = 1000
	StepTicks         = 10
	StepInterval      = 500 * time.Millisecond
)

// RandomStepTotal samples a total in [MinSimulatedSteps, MaxSimulatedSteps].
func RandomStepTotal(r *rand.Rand) int {
	return MinSimulatedSteps + r.IntN(MaxSimulatedSteps-MinSimulatedSteps+1)
}

// PlanSteps splits total into StepTicks increments that add up to total
// exactly: nine increments of total/StepTicks, then one catch-up
// increment carrying the integer-division remainder.
func PlanSteps(total int) []int {
	if total < 0 {
		total = 0
	}
	inc := total / StepTicks
	plan := make([]int, StepTicks)
	for i := 0; i < StepTicks-1; i++ {
		plan[i] = inc
	}
	plan[StepTicks-1] = total - (StepTicks-1)*inc
	return plan
}
