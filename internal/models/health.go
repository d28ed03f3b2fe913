package models

import (
	"fmt"
	"strings"
	"time"

	apperr "github.com/julianstephens/healthchain/internal/errors"
)

type ActivityType string

const (
	ActivityRunning  ActivityType = "running"
	ActivityCycling  ActivityType = "cycling"
	ActivityGym      ActivityType = "gym"
	ActivityWalking  ActivityType = "walking"
	ActivitySwimming ActivityType = "swimming"
	ActivityYoga     ActivityType = "yoga"
)

// ActivityTypes lists every supported activity type in display order.
var ActivityTypes = []ActivityType{
	ActivityRunning, ActivityCycling, ActivityGym, ActivityWalking, ActivitySwimming, ActivityYoga,
}

func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func (i Intensity) Valid() bool {
	return i == IntensityLow || i == IntensityMedium || i == IntensityHigh
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

func (t MealType) Valid() bool {
	for _, v := range MealTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DailyMetrics is the running tally for a single calendar day.
type DailyMetrics struct {
	Date      string  `json:"date"` // YYYY-MM-DD format
	Steps     int     `json:"steps"`
	Calories  int     `json:"calories"`
	Water     int     `json:"water"`      // ml
	Sleep     float64 `json:"sleep"`      // hours
	HeartRate int     `json:"heart_rate"` // bpm
	Distance  float64 `json:"distance"`   // km
}

// MetricsUpdate is a partial DailyMetrics; nil fields are left untouched.
type MetricsUpdate struct {
	Steps     *int     `json:"steps,omitempty"`
	Calories  *int     `json:"calories,omitempty"`
	Water     *int     `json:"water,omitempty"`
	Sleep     *float64 `json:"sleep,omitempty"`
	HeartRate *int     `json:"heart_rate,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
}

func (u MetricsUpdate) Validate() error {
	var bad []string
	if u.Steps != nil && *u.Steps < 0 {
		bad = append(bad, "steps")
	}
	if u.Calories != nil && *u.Calories < 0 {
		bad = append(bad, "calories")
	}
	if u.Water != nil && *u.Water < 0 {
		bad = append(bad, "water")
	}
	if u.Sleep != nil && *u.Sleep < 0 {
		bad = append(bad, "sleep")
	}
	if u.HeartRate != nil && *u.HeartRate < 0 {
		bad = append(bad, "heart_rate")
	}
	if u.Distance != nil && *u.Distance < 0 {
		bad = append(bad, "distance")
	}
	if len(bad) > 0 {
		return apperr.Validationf("metrics cannot be negative: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Apply merges the set fields of u into m.
func (u MetricsUpdate) Apply(m DailyMetrics) DailyMetrics {
	if u.Steps != nil {
		m.Steps = *u.Steps
	}
	if u.Calories != nil {
		m.Calories = *u.Calories
	}
	if u.Water != nil {
		m.Water = *u.Water
	}
	if u.Sleep != nil {
		m.Sleep = *u.Sleep
	}
	if u.HeartRate != nil {
		m.HeartRate = *u.HeartRate
	}
	if u.Distance != nil {
		m.Distance = *u.Distance
	}
	return m
}

type Activity struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      ActivityType `json:"type"`
	Duration  int          `json:"duration"` // minutes
	Calories  int          `json:"calories"`
	Distance  float64      `json:"distance"` // km
	Intensity Intensity    `json:"intensity"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Notes     string       `json:"notes,omitempty"`
	Verified  bool         `json:"verified"`
	LoggedOn  string       `json:"logged_on"` // metrics date the calories were credited to
}

func (a *Activity) Validate() error {
	if !a.Type.Valid() {
		return apperr.Validationf("unknown activity type %q", a.Type)
	}
	if !a.Intensity.Valid() {
		return apperr.Validationf("unknown intensity %q", a.Intensity)
	}
	if a.Duration < 0 || a.Calories < 0 || a.Distance < 0 {
		return apperr.Validation("duration, calories and distance cannot be negative")
	}
	if !a.StartTime.IsZero() && !a.EndTime.IsZero() && a.EndTime.Before(a.StartTime) {
		return apperr.Validation("activity end time is before its start time")
	}
	return nil
}

type Meal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	Protein   float64   `json:"protein"` // grams
	Carbs     float64   `json:"carbs"`   // grams
	Fat       float64   `json:"fat"`     // grams
	MealType  MealType  `json:"meal_type"`
	Timestamp time.Time `json:"timestamp"`
	Verified  bool      `json:"verified"`
	LoggedOn  string    `json:"logged_on"`
}

func (m *Meal) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return apperr.Validation("meal name cannot be empty")
	}
	if !m.MealType.Valid() {
		return apperr.Validationf("unknown meal type %q", m.MealType)
	}
	if m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
		return apperr.Validation("calories and macros cannot be negative")
	}
	return nil
}

type NutritionGoals struct {
	DailyCalories int     `json:"daily_calories"`
	Protein       float64 `json:"protein"` // grams
	Carbs         float64 `json:"carbs"`   // grams
	Fat           float64 `json:"fat"`     // grams
	Water         int     `json:"water"`   // ml
}

// GoalsUpdate is a partial NutritionGoals; nil fields are left untouched.
type GoalsUpdate struct {
	DailyCalories *int     `json:"daily_calories,omitempty"`
	Protein       *float64 `json:"protein,omitempty"`
	Carbs         *float64 `json:"carbs,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Water         *int     `json:"water,omitempty"`
}

func (u GoalsUpdate) Validate() error {
	if (u.DailyCalories != nil && *u.DailyCalories < 0) || (u.Water != nil && *u.Water < 0) ||
		(u.Protein != nil && *u.Protein < 0) || (u.Carbs != nil && *u.Carbs < 0) || (u.Fat != nil && *u.Fat < 0) {
		return apperr.Validation("nutrition goals cannot be negative")
	}
	return nil
}

func (u GoalsUpdate) Apply(g NutritionGoals) NutritionGoals {
	if u.DailyCalories != nil {
		g.DailyCalories = *u.DailyCalories
	}
	if u.Protein != nil {
		g.Protein = *u.Protein
	}
	if u.Carbs != nil {
		g.Carbs = *u.Carbs
	}
	if u.Fat != nil {
		g.Fat = *u.Fat
	}
	if u.Water != nil {
		g.Water = *u.Water
	}
	return g
}

// MacroTotals is the sum of nutrition values across a set of meals.
type MacroTotals struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (t MacroTotals) String() string {
	return fmt.Sprintf("%d kcal, %.1fg protein, %.1fg carbs, %.1fg fat", t.Calories, t.Protein, t.Carbs, t.Fat)
}
