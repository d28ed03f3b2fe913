// Package health holds today's metrics, the activity and meal logs, and
// nutrition goals.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/notifier"
	"github.com/julianstephens/healthchain/internal/storage"
)

// DefaultGoals are used until the user sets their own.
var DefaultGoals = models.NutritionGoals{
	DailyCalories: constants.DefaultGoalCalories,
	Protein:       constants.DefaultGoalProtein,
	Carbs:         constants.DefaultGoalCarbs,
	Fat:           constants.DefaultGoalFat,
	Water:         constants.DefaultGoalWater,
}

// Snapshot is a copy of the store's state handed to subscribers.
type Snapshot struct {
	Metrics    models.DailyMetrics   `json:"metrics"`
	Activities []models.Activity     `json:"activities"`
	Meals      []models.Meal         `json:"meals"`
	Goals      models.NutritionGoals `json:"goals"`
}

type state struct {
	metrics    models.DailyMetrics
	history    map[string]models.DailyMetrics
	activities []models.Activity
	meals      []models.Meal
	goals      models.NutritionGoals
}

func (st *state) clone() *state {
	c := &state{
		metrics:    st.metrics,
		history:    make(map[string]models.DailyMetrics, len(st.history)),
		activities: append([]models.Activity(nil), st.activities...),
		meals:      append([]models.Meal(nil), st.meals...),
		goals:      st.goals,
	}
	for k, v := range st.history {
		c.history[k] = v
	}
	return c
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Metrics:    st.metrics,
		Activities: append([]models.Activity{}, st.activities...),
		Meals:      append([]models.Meal{}, st.meals...),
		Goals:      st.goals,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. The clock's local date decides which day
// the metrics belong to.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUserID supplies the id stamped on new activities and meals.
func WithUserID(fn func() string) Option {
	return func(s *Store) { s.userID = fn }
}

type Store struct {
	mu sync.Mutex
	// notifyMu is taken before mu is released so snapshots reach
	// subscribers in commit order. Subscribers must not mutate the store.
	notifyMu sync.Mutex
	kv       storage.Provider
	now      func() time.Time
	userID   func() string
	st       *state

	subs notifier.Notifier[Snapshot]
}

func New(kv storage.Provider, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		userID: func() string { return "" },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.st = &state{
		metrics: models.DailyMetrics{Date: s.today()},
		history: make(map[string]models.DailyMetrics),
		goals:   DefaultGoals,
	}
	return s
}

func (s *Store) today() string {
	return s.now().Format(constants.DateFormat)
}

// Load reads every health record from storage. Missing records keep their
// defaults. A stale metrics day is rolled over and persisted.
func (s *Store) Load() error {
	st := &state{
		metrics: models.DailyMetrics{Date: s.today()},
		history: make(map[string]models.DailyMetrics),
		goals:   DefaultGoals,
	}

	reads := []struct {
		key string
		dst any
	}{
		{constants.KeyTodayMetrics, &st.metrics},
		{constants.KeyMetricsHistory, &st.history},
		{constants.KeyActivities, &st.activities},
		{constants.KeyMeals, &st.meals},
		{constants.KeyNutritionGoals, &st.goals},
	}
	for _, r := range reads {
		if _, err := storage.Fetch(s.kv, r.key, r.dst); err != nil {
			return apperr.Persistence("load health data", err)
		}
	}
	if st.history == nil {
		st.history = make(map[string]models.DailyMetrics)
	}
	// Undated metrics predate day tracking and are taken as today's.
	if st.metrics.Date == "" {
		st.metrics.Date = s.today()
	}

	s.mu.Lock()
	s.st = st
	s.mu.Unlock()

	// A no-op mutation persists a rollover if one is due.
	return s.mutate("load", func(*state, *dirty) error { return nil })
}

type dirty struct {
	metrics, history, activities, meals, goals bool
}

func (d *dirty) any() bool {
	return d.metrics || d.history || d.activities || d.meals || d.goals
}

func (d *dirty) ops(st *state) ([]storage.Op, error) {
	records := []struct {
		set bool
		key string
		v   any
	}{
		{d.history, constants.KeyMetricsHistory, st.history},
		{d.metrics, constants.KeyTodayMetrics, st.metrics},
		{d.activities, constants.KeyActivities, st.activities},
		{d.meals, constants.KeyMeals, st.meals},
		{d.goals, constants.KeyNutritionGoals, st.goals},
	}

	var ops []storage.Op
	for _, r := range records {
		if !r.set {
			continue
		}
		op, err := storage.PutOp(r.key, r.v)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// rollover archives the current metrics and starts a zeroed day when the
// clock has moved past the metrics date.
func (s *Store) rollover(st *state, d *dirty) {
	today := s.today()
	if st.metrics.Date == today {
		return
	}
	if st.metrics.Date != "" {
		st.history[st.metrics.Date] = st.metrics
		d.history = true
	}
	logger.Debug("Rolling over daily metrics", "from", st.metrics.Date, "to", today)
	st.metrics = models.DailyMetrics{Date: today}
	d.metrics = true
}

// mutate runs fn on a copy of the state, persists every touched record in
// one write and only then swaps the copy in.
func (s *Store) mutate(op string, fn func(*state, *dirty) error) error {
	s.mu.Lock()

	next := s.st.clone()
	var d dirty
	s.rollover(next, &d)
	if err := fn(next, &d); err != nil {
		s.mu.Unlock()
		return err
	}
	if !d.any() {
		s.mu.Unlock()
		return nil
	}

	ops, err := d.ops(next)
	if err == nil {
		err = s.kv.Write(ops...)
	}
	if err != nil {
		s.mu.Unlock()
		logger.Error("Failed to persist health data", "op", op, "error", err)
		return apperr.Persistence(op, err)
	}

	s.st = next
	snap := next.snapshot()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.subs.Notify(snap)
	s.notifyMu.Unlock()
	return nil
}

// UpdateMetrics merges the set fields of u into today's metrics.
func (s *Store) UpdateMetrics(u models.MetricsUpdate) (models.DailyMetrics, error) {
	if err := u.Validate(); err != nil {
		return models.DailyMetrics{}, err
	}
	var out models.DailyMetrics
	err := s.mutate("update metrics", func(st *state, d *dirty) error {
		st.metrics = u.Apply(st.metrics)
		d.metrics = true
		out = st.metrics
		return nil
	})
	return out, err
}

// AddActivity assigns an id and the current user, appends a to the log
// and credits its calories to today's metrics.
func (s *Store) AddActivity(a models.Activity) (models.Activity, error) {
	if a.Intensity == "" {
		a.Intensity = models.IntensityMedium
	}
	if a.StartTime.IsZero() {
		a.StartTime = s.now()
	}
	if a.EndTime.IsZero() {
		a.EndTime = a.StartTime.Add(time.Duration(a.Duration) * time.Minute)
	}
	if err := a.Validate(); err != nil {
		return models.Activity{}, err
	}
	a.ID = uuid.New().String()
	a.UserID = s.userID()

	err := s.mutate("add activity", func(st *state, d *dirty) error {
		a.LoggedOn = st.metrics.Date
		st.activities = append(st.activities, a)
		st.metrics.Calories += a.Calories
		d.activities, d.metrics = true, true
		return nil
	})
	if err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// DeleteActivity removes the activity and reverses its calories, floored
// at zero, when it was credited to the current day.
func (s *Store) DeleteActivity(id string) error {
	return s.mutate("delete activity", func(st *state, d *dirty) error {
		idx := -1
		for i := range st.activities {
			if st.activities[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.NotFound("activity", id)
		}
		a := st.activities[idx]
		st.activities = append(st.activities[:idx], st.activities[idx+1:]...)
		d.activities = true
		if reverse(st, a.LoggedOn, a.Calories) {
			d.metrics = true
		}
		return nil
	})
}

// AddMeal is AddActivity for the meal log.
func (s *Store) AddMeal(m models.Meal) (models.Meal, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	if err := m.Validate(); err != nil {
		return models.Meal{}, err
	}
	m.ID = uuid.New().String()
	m.UserID = s.userID()

	err := s.mutate("add meal", func(st *state, d *dirty) error {
		m.LoggedOn = st.metrics.Date
		st.meals = append(st.meals, m)
		st.metrics.Calories += m.Calories
		d.meals, d.metrics = true, true
		return nil
	})
	if err != nil {
		return models.Meal{}, err
	}
	return m, nil
}

// DeleteMeal is DeleteActivity for the meal log.
func (s *Store) DeleteMeal(id string) error {
	return s.mutate("delete meal", func(st *state, d *dirty) error {
		idx := -1
		for i := range st.meals {
			if st.meals[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.NotFound("meal", id)
		}
		m := st.meals[idx]
		st.meals = append(st.meals[:idx], st.meals[idx+1:]...)
		d.meals = true
		if reverse(st, m.LoggedOn, m.Calories) {
			d.metrics = true
		}
		return nil
	})
}

// reverse subtracts calories from today's metrics if loggedOn is today.
// Records without a date predate rollover and count as today.
func reverse(st *state, loggedOn string, calories int) bool {
	if loggedOn != "" && loggedOn != st.metrics.Date {
		return false
	}
	st.metrics.Calories = max(0, st.metrics.Calories-calories)
	return true
}

// UpdateNutritionGoals merges the set fields of u into the goals.
func (s *Store) UpdateNutritionGoals(u models.GoalsUpdate) (models.NutritionGoals, error) {
	if err := u.Validate(); err != nil {
		return models.NutritionGoals{}, err
	}
	var out models.NutritionGoals
	err := s.mutate("update nutrition goals", func(st *state, d *dirty) error {
		st.goals = u.Apply(st.goals)
		d.goals = true
		out = st.goals
		return nil
	})
	return out, err
}

// Totals sums calories and macros across every meal currently held.
func (s *Store) Totals() models.MacroTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t models.MacroTotals
	for _, m := range s.st.meals {
		t.Calories += m.Calories
		t.Protein += m.Protein
		t.Carbs += m.Carbs
		t.Fat += m.Fat
	}
	return t
}

// TodayTotals sums the meals logged on the current day. Meals without a
// LoggedOn stamp are dated by their timestamp.
func (s *Store) TodayTotals() models.MacroTotals {
	today := s.today()
	s.mu.Lock()
	defer s.mu.Unlock()
	var t models.MacroTotals
	for _, m := range s.st.meals {
		day := m.LoggedOn
		if day == "" {
			day = m.Timestamp.Format(constants.DateFormat)
		}
		if day != today {
			continue
		}
		t.Calories += m.Calories
		t.Protein += m.Protein
		t.Carbs += m.Carbs
		t.Fat += m.Fat
	}
	return t
}

func (s *Store) TotalCalories() int    { return s.Totals().Calories }
func (s *Store) TotalProtein() float64 { return s.Totals().Protein }
func (s *Store) TotalCarbs() float64   { return s.Totals().Carbs }
func (s *Store) TotalFat() float64     { return s.Totals().Fat }

func (s *Store) Metrics() models.DailyMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.metrics
}

func (s *Store) Goals() models.NutritionGoals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.goals
}

func (s *Store) Activities() []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Activity{}, s.st.activities...)
}

func (s *Store) Meals() []models.Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Meal{}, s.st.meals...)
}

// Activity returns the activity with the given id.
func (s *Store) Activity(id string) (models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.st.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Activity{}, apperr.NotFound("activity", id)
}

// MetricsHistory returns archived days, oldest first.
func (s *Store) MetricsHistory() []models.DailyMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DailyMetrics, 0, len(s.st.history))
	for _, m := range s.st.history {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.snapshot()
}

// Subscribe registers fn to receive a snapshot after every persisted change.
// Snapshots arrive in commit order; fn must not call back into the store.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.subs.Subscribe(fn)
}
