// Package stats derives dashboard figures from health and wallet data.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/models"
)

// Progress is the percentage of each daily goal reached, 0-100.
type Progress struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Water    float64 `json:"water"`
}

func percent(value, goal float64) float64 {
	if goal <= 0 || value <= 0 {
		return 0
	}
	return min(100, value/goal*100)
}

// NutritionProgress compares meal totals and water intake with the goals.
func NutritionProgress(totals models.MacroTotals, waterML int, goals models.NutritionGoals) Progress {
	return Progress{
		Calories: percent(float64(totals.Calories), float64(goals.DailyCalories)),
		Protein:  percent(totals.Protein, goals.Protein),
		Carbs:    percent(totals.Carbs, goals.Carbs),
		Fat:      percent(totals.Fat, goals.Fat),
		Water:    percent(float64(waterML), float64(goals.Water)),
	}
}

// DayStats is one bucket of WeeklyStats.
type DayStats struct {
	Date       string `json:"date"`
	Steps      int    `json:"steps"`
	Calories   int    `json:"calories"`
	Activities int    `json:"activities"`
	Meals      int    `json:"meals"`
}

// WeeklyStats returns seven daily buckets ending today, oldest first.
// Steps and calories come from the day's metrics; activity and meal counts
// from the logs.
func WeeklyStats(today time.Time, current models.DailyMetrics, history []models.DailyMetrics,
	activities []models.Activity, meals []models.Meal) []DayStats {

	metricsByDate := make(map[string]models.DailyMetrics, len(history)+1)
	for _, m := range history {
		metricsByDate[m.Date] = m
	}
	metricsByDate[current.Date] = current

	activityCount := make(map[string]int)
	for _, a := range activities {
		activityCount[dayOf(a.LoggedOn, a.StartTime)]++
	}
	mealCount := make(map[string]int)
	for _, m := range meals {
		mealCount[dayOf(m.LoggedOn, m.Timestamp)]++
	}

	out := make([]DayStats, 0, 7)
	for i := 6; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(constants.DateFormat)
		m := metricsByDate[date]
		out = append(out, DayStats{
			Date:       date,
			Steps:      m.Steps,
			Calories:   m.Calories,
			Activities: activityCount[date],
			Meals:      mealCount[date],
		})
	}
	return out
}

func dayOf(loggedOn string, ts time.Time) string {
	if loggedOn != "" {
		return loggedOn
	}
	return ts.Format(constants.DateFormat)
}

// Summary totals a set of activities.
type Summary struct {
	Workouts int     `json:"workouts"`
	Calories int     `json:"calories"`
	Duration int     `json:"duration"` // minutes
	Distance float64 `json:"distance"` // km
}

func ActivitySummary(activities []models.Activity) Summary {
	var s Summary
	for _, a := range activities {
		s.Workouts++
		s.Calories += a.Calories
		s.Duration += a.Duration
		s.Distance += a.Distance
	}
	return s
}

// Achievement is a milestone shown on the profile.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// AchievementInput is everything the milestones are computed from.
type AchievementInput struct {
	Today      time.Time
	Metrics    []models.DailyMetrics // current day and history
	Activities []models.Activity
	Meals      []models.Meal
	Earned     decimal.Decimal
}

// Achievements evaluates the fixed milestone list.
func Achievements(in AchievementInput) []Achievement {
	weekAgo := in.Today.AddDate(0, 0, -6).Format(constants.DateFormat)
	recent := 0
	for _, a := range in.Activities {
		if dayOf(a.LoggedOn, a.StartTime) >= weekAgo {
			recent++
		}
	}

	waterDays, sleepDays := 0, 0
	for _, m := range in.Metrics {
		if m.Water > 0 {
			waterDays++
		}
		if m.Sleep >= 8 {
			sleepDays++
		}
	}

	return []Achievement{
		{"first-step", "First Step", "Log your first activity", len(in.Activities) >= 1},
		{"week-warrior", "Week Warrior", "Complete 7 activities in a week", recent >= 7},
		{"calorie-counter", "Calorie Counter", "Log 100 meals", len(in.Meals) >= 100},
		{"hydration-hero", "Hydration Hero", "Log water intake for 30 days", waterDays >= 30},
		{"sleep-master", "Sleep Master", "Log 8+ hours of sleep for 7 days", sleepDays >= 7},
		{"crypto-champion", "Crypto Champion", "Earn 1000 " + constants.TokenSymbol + " tokens",
			in.Earned.GreaterThanOrEqual(decimal.NewFromInt(1000))},
	}
}
