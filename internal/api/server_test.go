package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/auth"
	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/health"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/storage"
	"github.com/julianstephens/healthchain/internal/wallet"
)

type testEnv struct {
	kv  *storage.MemoryStore
	srv *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := storage.NewMemoryStore()
	authStore := auth.New(kv, identity.NewMock(0))
	if err := authStore.Restore(); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	healthStore := health.New(kv, health.WithUserID(authStore.CurrentUserID))
	walletStore := wallet.New(kv, wallet.WithUserID(authStore.CurrentUserID))
	return &testEnv{kv: kv, srv: New(authStore, healthStore, walletStore)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/session/login", models.LoginCredentials{Email: "ana@example.com", Password: "secret1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	if !resp.Success {
		t.Fatalf("response not successful: %s", resp.Error)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"credentials", identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not found", apperr.NotFound("meal", "m1"), http.StatusNotFound},
		{"already claimed", apperr.ErrAlreadyClaimed, http.StatusConflict},
		{"no wallet", apperr.ErrNoWallet, http.StatusConflict},
		{"persistence", apperr.Persistence("write", errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodGet, "/api/metrics", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/metrics before login = %d, want 401", rr.Code)
	}

	env.login(t)
	if rr := env.do(t, http.MethodGet, "/api/metrics", nil); rr.Code != http.StatusOK {
		t.Errorf("GET /api/metrics after login = %d, want 200", rr.Code)
	}

	if rr := env.do(t, http.MethodDelete, "/api/session", nil); rr.Code != http.StatusOK {
		t.Fatalf("logout = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/metrics", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/metrics after logout = %d, want 401", rr.Code)
	}
}

func TestLoginAndRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/session/login", models.LoginCredentials{Email: "ana@example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("login with empty password = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/session/register", models.RegisterCredentials{
		FullName: "Ana", Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret2",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("register with mismatched passwords = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/session/register", models.RegisterCredentials{
		FullName: "Ana", Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register = %d, body %s", rr.Code, rr.Body.String())
	}
	var snap auth.Snapshot
	decodeData(t, rr, &snap)
	if snap.State != auth.StateLoggedIn || snap.User == nil || snap.User.FullName != "Ana" {
		t.Errorf("register snapshot = %+v", snap)
	}
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/api/meals", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rr.Code)
	}
}

func TestActivityLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rr := env.do(t, http.MethodPost, "/api/activities", map[string]any{
		"type": "running", "duration": 30, "calories": 300, "distance": 5, "reward": "10",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add activity = %d, body %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Activity models.Activity `json:"activity"`
		Reward   models.Reward   `json:"reward"`
	}
	decodeData(t, rr, &created)
	if created.Activity.ID == "" || created.Activity.Intensity != models.IntensityMedium {
		t.Errorf("activity = %+v", created.Activity)
	}
	if created.Reward.ActivityID != created.Activity.ID || !created.Reward.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("reward = %+v", created.Reward)
	}

	var metrics models.DailyMetrics
	decodeData(t, env.do(t, http.MethodGet, "/api/metrics", nil), &metrics)
	if metrics.Calories != 300 {
		t.Errorf("calories after add = %d, want 300", metrics.Calories)
	}

	path := "/api/activities/" + created.Activity.ID
	if rr := env.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, path, nil); rr.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rr.Code)
	}

	decodeData(t, env.do(t, http.MethodGet, "/api/metrics", nil), &metrics)
	if metrics.Calories != 0 {
		t.Errorf("calories after delete = %d, want 0", metrics.Calories)
	}
}

func TestNutrition(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rr := env.do(t, http.MethodPost, "/api/meals", models.Meal{
		Name: "Chicken bowl", Calories: 500, Protein: 75, Carbs: 50, Fat: 10, MealType: models.MealLunch,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add meal = %d, body %s", rr.Code, rr.Body.String())
	}

	var got nutritionResponse
	decodeData(t, env.do(t, http.MethodGet, "/api/nutrition", nil), &got)
	if got.Totals.Calories != 500 || got.Totals.Protein != 75 {
		t.Errorf("totals = %+v", got.Totals)
	}
	if got.Progress.Protein != 50 || got.Progress.Calories != 25 {
		t.Errorf("progress = %+v", got.Progress)
	}

	rr = env.do(t, http.MethodPatch, "/api/goals", map[string]any{"protein": -1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative goal = %d, want 400", rr.Code)
	}
}

func TestNutritionCountsTodayOnly(t *testing.T) {
	env := newTestEnv(t)
	storage.Put(env.kv, constants.KeyMeals, []models.Meal{
		{ID: "old", Name: "Last week", Calories: 1500, MealType: models.MealDinner, LoggedOn: "2000-01-01"},
	})
	if err := env.srv.health.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	env.login(t)

	var got nutritionResponse
	decodeData(t, env.do(t, http.MethodGet, "/api/nutrition", nil), &got)
	if got.Totals != (models.MacroTotals{}) || got.Progress.Calories != 0 {
		t.Errorf("totals = %+v, progress = %+v, want nothing from earlier days", got.Totals, got.Progress)
	}

	env.do(t, http.MethodPost, "/api/meals", models.Meal{Name: "Toast", Calories: 200, MealType: models.MealBreakfast})
	decodeData(t, env.do(t, http.MethodGet, "/api/nutrition", nil), &got)
	if got.Totals.Calories != 200 {
		t.Errorf("Totals.Calories = %d, want 200", got.Totals.Calories)
	}
}

func TestWalletAndRewards(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	if rr := env.do(t, http.MethodGet, "/api/wallet", nil); rr.Code != http.StatusConflict {
		t.Errorf("GET wallet before create = %d, want 409", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/wallet", nil); rr.Code != http.StatusCreated {
		t.Fatalf("create wallet = %d", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/api/rewards", map[string]any{"amount": "50", "reason": "Morning run"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add reward = %d, body %s", rr.Code, rr.Body.String())
	}
	var reward models.Reward
	decodeData(t, rr, &reward)

	claimPath := "/api/rewards/" + reward.ID + "/claim"
	if rr := env.do(t, http.MethodPost, claimPath, nil); rr.Code != http.StatusOK {
		t.Fatalf("claim = %d, body %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPost, claimPath, nil); rr.Code != http.StatusConflict {
		t.Errorf("second claim = %d, want 409", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/rewards/missing/claim", nil); rr.Code != http.StatusNotFound {
		t.Errorf("claim unknown = %d, want 404", rr.Code)
	}

	var w models.Wallet
	decodeData(t, env.do(t, http.MethodGet, "/api/wallet", nil), &w)
	if !w.Balance.Equal(decimal.NewFromInt(50)) || !w.USDValue.Equal(decimal.NewFromInt(25)) {
		t.Errorf("wallet = balance %s usd %s, want 50 / 25", w.Balance, w.USDValue)
	}

	var txs []models.Transaction
	decodeData(t, env.do(t, http.MethodGet, "/api/transactions", nil), &txs)
	if len(txs) != 1 || txs[0].Description != "Claimed reward: Morning run" {
		t.Errorf("transactions = %+v", txs)
	}

	var pending []models.Reward
	decodeData(t, env.do(t, http.MethodGet, "/api/rewards?pending=true", nil), &pending)
	if len(pending) != 0 {
		t.Errorf("pending rewards = %d, want 0", len(pending))
	}

	var conv struct {
		USD decimal.Decimal `json:"usd"`
	}
	decodeData(t, env.do(t, http.MethodGet, "/api/wallet/convert?amount=50", nil), &conv)
	if !conv.USD.Equal(decimal.NewFromInt(25)) {
		t.Errorf("convert 50 = %s, want 25", conv.USD)
	}
	if rr := env.do(t, http.MethodGet, "/api/wallet/convert?amount=abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("convert abc = %d, want 400", rr.Code)
	}
}

func TestPersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.kv.FailWrites = errors.New("disk full")

	rr := env.do(t, http.MethodPatch, "/api/metrics", map[string]any{"steps": 1000})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("update with failing storage = %d, want 500", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("disk full")) {
		t.Error("internal error detail leaked to client")
	}
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodGet, "/api/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown endpoint = %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodPut, "/api/session", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/session = %d, want 405", rr.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/api/activities", map[string]any{"type": "yoga", "duration": 45, "calories": 150})

	var week []struct {
		Activities int `json:"activities"`
	}
	decodeData(t, env.do(t, http.MethodGet, "/api/stats/weekly", nil), &week)
	if len(week) != 7 || week[6].Activities != 1 {
		t.Errorf("weekly stats = %+v", week)
	}

	var achievements []struct {
		ID       string `json:"id"`
		Unlocked bool   `json:"unlocked"`
	}
	decodeData(t, env.do(t, http.MethodGet, "/api/achievements", nil), &achievements)
	if len(achievements) == 0 || achievements[0].ID != "first-step" || !achievements[0].Unlocked {
		t.Errorf("achievements = %+v", achievements)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	if rr := env.do(t, http.MethodGet, "/api/goals", nil); rr.Code != http.StatusOK {
		t.Fatalf("goals status = %d", rr.Code)
	}

	// The scrape endpoint needs no session
	rr := env.do(t, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`healthchain_http_requests_total{method="GET",route="/api/goals",status="200"} 1`,
		`healthchain_wallet_balance_tokens 0`,
		`healthchain_wallet_pending_rewards 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
