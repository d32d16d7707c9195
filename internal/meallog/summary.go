package meallog

import (
	"math"
	"time"
)

const DefaultCalorieGoal = 2000

type AvatarState string

const (
	AvatarSad        AvatarState = "sad"
	AvatarNeutral    AvatarState = "neutral"
	AvatarHappy      AvatarState = "happy"
	AvatarStrong     AvatarState = "strong"
	AvatarOverweight AvatarState = "overweight"
)

type DailySummary struct {
	Day             string      `json:"day"`
	MealsLogged     int         `json:"mealsLogged"`
	Calories        int         `json:"calories"`
	CaloriesGoal    int         `json:"caloriesGoal"`
	ProteinG        float64     `json:"proteinG"`
	CarbsG          float64     `json:"carbsG"`
	FatG            float64     `json:"fatG"`
	ProgressPercent int         `json:"progressPercent"`
	Avatar          AvatarState `json:"avatar"`
}

// Summarize totals the meals of a day against the calorie goal. Each meal
// contributes its calories scaled by the portion, truncated.
func Summarize(day time.Time, meals []Meal, goal int) DailySummary {
	if goal <= 0 {
		goal = DefaultCalorieGoal
	}

	summary := DailySummary{
		Day:          day.Format(time.DateOnly),
		MealsLogged:  len(meals),
		CaloriesGoal: goal,
	}
	for _, m := range meals {
		summary.Calories += int(float64(m.Calories) * m.Portion)
		summary.ProteinG += m.ProteinG * m.Portion
		summary.CarbsG += m.CarbsG * m.Portion
		summary.FatG += m.FatG * m.Portion
	}
	summary.ProteinG = round1(summary.ProteinG)
	summary.CarbsG = round1(summary.CarbsG)
	summary.FatG = round1(summary.FatG)

	pct := float64(summary.Calories) / float64(max(1, goal)) * 100
	summary.ProgressPercent = int(math.Round(math.Min(pct, 100)))
	summary.Avatar = AvatarFor(summary.Calories, goal)

	return summary
}

func AvatarFor(calories, goal int) AvatarState {
	progress := float64(calories) / float64(max(1, goal))
	switch {
	case progress < 0.3:
		return AvatarSad
	case progress < 0.7:
		return AvatarNeutral
	case progress < 0.9:
		return AvatarHappy
	case progress < 1.1:
		return AvatarStrong
	default:
		return AvatarOverweight
	}
}
