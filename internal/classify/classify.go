// Package classify turns raw numeric readings into named bands with fixed
// advice.
//
// Every function here is pure and total: the same input always yields the
// same band, no input panics, and nothing is logged or stored. Range
// validation (is a pulse of -3 plausible?) belongs to the tracker; this
// package only answers "which band does this number fall in".
//
// Each band has exactly one advice string. The texts are the ones the
// desktop app displayed, so they are in Russian.
package classify

import (
	"math"
	"strings"
)

// Band is a named category produced by a classification rule.
type Band string

const (
	BMIUnderweight Band = "underweight"
	BMINormal      Band = "normal"
	BMIOverweight  Band = "overweight"
	BMIObese       Band = "obese"

	SleepVeryLow      Band = "very-low"
	SleepInsufficient Band = "insufficient"
	SleepOptimal      Band = "optimal"
	SleepExcessive    Band = "excessive"

	PulseLow    Band = "low"
	PulseNormal Band = "normal"
	PulseHigh   Band = "high"

	GoalWeightLoss Band = "weight-loss"
	GoalWeightGain Band = "weight-gain"
	GoalGeneric    Band = "generic"
)

// Result pairs a band with its advice text.
type Result struct {
	Band   Band   `json:"band"`
	Advice string `json:"advice"`
}

var bmiAdvice = map[Band]string{
	BMIUnderweight: "Недостаточный вес:\n- Увеличьте калорийность питания.\n- Добавьте питательные продукты.\n- Занимайтесь силовыми тренировками.",
	BMINormal:      "Нормальный вес:\n- Поддерживайте сбалансированное питание.\n- Регулярные упражнения.\n- Мониторьте изменения.",
	BMIOverweight:  "Избыточный вес:\n- Уменьшите калорийность.\n- Увеличьте кардио-активность.\n- Контролируйте порции.",
	BMIObese:       "Ожирение:\n- Обратитесь к врачу.\n- Сбалансированная диета с дефицитом.\n- Комбинируйте кардио и силовые тренировки.",
}

var sleepAdvice = map[Band]string{
	SleepVeryLow:      "😴 Очень мало сна! Попробуйте спать минимум 7 часов.",
	SleepInsufficient: "🟡 Недостаточный сон. Нужно чуть больше отдыха.",
	SleepOptimal:      "💜 Отлично! Это оптимальное количество сна.",
	SleepExcessive:    "💤 Вы спите больше нормы — возможно, стоит ложиться позже.",
}

var pulseAdvice = map[Band]string{
	PulseLow:    "Пульс ниже нормы — обратитесь к врачу.",
	PulseNormal: "Нормальный пульс — продолжайте поддерживать активность!",
	PulseHigh:   "Пульс выше нормы — отдохните и измерьте снова.",
}

var goalAdvice = map[Band]string{
	GoalWeightLoss: "💡 Советы для снижения веса:\n" +
		"- Создайте дефицит калорий (ешьте меньше, чем тратите).\n" +
		"- Добавьте кардио 3–4 раза в неделю.\n" +
		"- Увеличьте потребление белка и клетчатки.\n" +
		"- Пейте достаточно воды.",
	GoalWeightGain: "💡 Советы для набора веса:\n" +
		"- Увеличьте калорийность рациона.\n" +
		"- Ешьте больше белков и углеводов.\n" +
		"- Занимайтесь силовыми тренировками.\n" +
		"- Ешьте чаще, но меньшими порциями.",
	GoalGeneric: "💡 Общие советы: Разбейте цель на маленькие шаги и отслеживайте прогресс!",
}

// Band thresholds. Lower bounds are inclusive for BMI and sleep; the pulse
// "normal" band is closed on both ends.
const (
	bmiNormalMin     = 18.5
	bmiOverweightMin = 25.0
	bmiObeseMin      = 30.0

	sleepInsufficientMin = 5.0
	sleepOptimalMin      = 7.0
	sleepExcessiveMin    = 9.0

	pulseNormalMin = 60.0
	pulseNormalMax = 100.0
)

// BMI computes the body-mass index from weight in kilograms and height in
// centimeters. ok is false when either input is not a positive finite
// number, which also guards the division.
func BMI(weightKg, heightCm float64) (bmi float64, ok bool) {
	if !positive(weightKg) || !positive(heightCm) {
		return 0, false
	}
	m := heightCm / 100
	return weightKg / (m * m), true
}

// ClassifyBMI maps a BMI value to its band.
//
// NaN compares false against every threshold and therefore lands in the
// top band, which keeps the function total.
func ClassifyBMI(bmi float64) Result {
	var b Band
	switch {
	case bmi < bmiNormalMin:
		b = BMIUnderweight
	case bmi < bmiOverweightMin:
		b = BMINormal
	case bmi < bmiObeseMin:
		b = BMIOverweight
	default:
		b = BMIObese
	}
	return Result{Band: b, Advice: bmiAdvice[b]}
}

// ClassifySleep maps hours slept to a band.
func ClassifySleep(hours float64) Result {
	var b Band
	switch {
	case hours < sleepInsufficientMin:
		b = SleepVeryLow
	case hours < sleepOptimalMin:
		b = SleepInsufficient
	case hours < sleepExcessiveMin:
		b = SleepOptimal
	default:
		b = SleepExcessive
	}
	return Result{Band: b, Advice: sleepAdvice[b]}
}

// ClassifyPulse maps a resting heart rate in beats per minute to a band.
func ClassifyPulse(bpm float64) Result {
	var b Band
	switch {
	case bpm < pulseNormalMin:
		b = PulseLow
	case bpm <= pulseNormalMax:
		b = PulseNormal
	default:
		b = PulseHigh
	}
	return Result{Band: b, Advice: pulseAdvice[b]}
}

// Keywords for goal advice. A description must mention weight AND a
// direction; English and the Russian wording are both recognised.
var (
	weightWords = []string{"weight", "вес"}
	loseWords   = []string{"lose", "сбросить"}
	gainWords   = []string{"gain", "набрать"}
)

// ClassifyGoal picks advice for a free-form goal description by
// case-insensitive substring match. Weight loss wins when a description
// mentions both directions.
func ClassifyGoal(desc string) Result {
	d := strings.ToLower(desc)

	var b Band
	switch {
	case containsAny(d, weightWords) && containsAny(d, loseWords):
		b = GoalWeightLoss
	case containsAny(d, weightWords) && containsAny(d, gainWords):
		b = GoalWeightGain
	default:
		b = GoalGeneric
	}
	return Result{Band: b, Advice: goalAdvice[b]}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
