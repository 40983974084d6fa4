package model

// Period is the time frame a goal should be reached in. The values are the
// labels the desktop app stored, so they stay in Russian on disk.
type Period string

const (
	PeriodWeek        Period = "1 неделя"
	PeriodMonth       Period = "1 месяц"
	PeriodThreeMonths Period = "3 месяца"
)

// DefaultPeriod is preselected when the caller does not choose one.
const DefaultPeriod = PeriodMonth

// Periods lists the accepted periods in display order.
func Periods() []Period {
	return []Period{PeriodWeek, PeriodMonth, PeriodThreeMonths}
}

// Valid reports whether p is one of the three accepted periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodThreeMonths:
		return true
	}
	return false
}

// Goal is a user-declared target. Advice is generated once when the goal
// is created and never recomputed, even if the advice texts change later.
type Goal struct {
	Desc   string  `json:"desc"`
	Value  float64 `json:"value"`
	Period Period  `json:"period"`
	Advice string  `json:"advice"`
}
