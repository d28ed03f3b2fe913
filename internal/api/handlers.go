package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/stats"
	"github.com/julianstephens/healthchain/internal/wallet"
)

// =============================================================================
// Session
// =============================================================================

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.auth.Snapshot())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginCredentials
	if !decode(w, r, &in) {
		return
	}
	if err := s.auth.Login(in.Email, in.Password); err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, s.auth.Snapshot())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterCredentials
	if !decode(w, r, &in) {
		return
	}
	if err := s.auth.Register(in.FullName, in.Email, in.Password, in.ConfirmPassword); err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, s.auth.Snapshot())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout()
	WriteSuccess(w, http.StatusOK, s.auth.Snapshot())
}

// =============================================================================
// Health
// =============================================================================

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.health.Metrics())
}

func (s *Server) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	var in models.MetricsUpdate
	if !decode(w, r, &in) {
		return
	}
	m, err := s.health.UpdateMetrics(in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, m)
}

func (s *Server) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.health.MetricsHistory())
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.health.Activities())
}

// activityInput is an Activity plus an optional reward credited for it.
type activityInput struct {
	models.Activity
	Reward *decimal.Decimal `json:"reward,omitempty"`
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var in activityInput
	if !decode(w, r, &in) {
		return
	}
	a, err := s.health.AddActivity(in.Activity)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := map[string]any{"activity": a}
	if in.Reward != nil {
		reward, err := s.wallet.AddReward(models.Reward{
			ActivityID: a.ID,
			Amount:     *in.Reward,
			Reason:     "Completed " + string(a.Type) + " activity",
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out["reward"] = reward
	}
	WriteSuccess(w, http.StatusCreated, out)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.health.DeleteActivity(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.health.Meals())
}

func (s *Server) handleAddMeal(w http.ResponseWriter, r *http.Request) {
	var in models.Meal
	if !decode(w, r, &in) {
		return
	}
	m, err := s.health.AddMeal(in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := s.health.DeleteMeal(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.health.Goals())
}

func (s *Server) handleUpdateGoals(w http.ResponseWriter, r *http.Request) {
	var in models.GoalsUpdate
	if !decode(w, r, &in) {
		return
	}
	g, err := s.health.UpdateNutritionGoals(in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, g)
}

type nutritionResponse struct {
	Totals   models.MacroTotals    `json:"totals"`
	Goals    models.NutritionGoals `json:"goals"`
	Progress stats.Progress        `json:"progress"`
}

func (s *Server) handleNutrition(w http.ResponseWriter, r *http.Request) {
	totals := s.health.TodayTotals()
	goals := s.health.Goals()
	WriteSuccess(w, http.StatusOK, nutritionResponse{
		Totals:   totals,
		Goals:    goals,
		Progress: stats.NutritionProgress(totals, s.health.Metrics().Water, goals),
	})
}

// =============================================================================
// Wallet
// =============================================================================

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.wallet.Wallet()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, wal)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.wallet.CreateWallet()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, wal)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"amount": amount,
		"usd":    s.wallet.ConvertToUSD(amount),
		"rate":   wallet.MockRate,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.wallet.TransactionHistory())
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.Transaction
	if !decode(w, r, &in) {
		return
	}
	tx, err := s.wallet.AddTransaction(in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, tx)
}

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("pending") == "true" {
		WriteSuccess(w, http.StatusOK, s.wallet.PendingRewards())
		return
	}
	WriteSuccess(w, http.StatusOK, s.wallet.Rewards())
}

func (s *Server) handleAddReward(w http.ResponseWriter, r *http.Request) {
	var in models.Reward
	if !decode(w, r, &in) {
		return
	}
	reward, err := s.wallet.AddReward(in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, reward)
}

func (s *Server) handleRewardTotals(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]any{
		"total":   s.wallet.TotalRewards(),
		"claimed": s.wallet.ClaimedTotal(),
		"symbol":  constants.TokenSymbol,
	})
}

func (s *Server) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	tx, err := s.wallet.ClaimReward(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, tx)
}

// =============================================================================
// Stats
// =============================================================================

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, stats.WeeklyStats(s.now(), s.health.Metrics(),
		s.health.MetricsHistory(), s.health.Activities(), s.health.Meals()))
}

func (s *Server) handleActivitySummary(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, stats.ActivitySummary(s.health.Activities()))
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, stats.Achievements(stats.AchievementInput{
		Today:      s.now(),
		Metrics:    append(s.health.MetricsHistory(), s.health.Metrics()),
		Activities: s.health.Activities(),
		Meals:      s.health.Meals(),
		Earned:     s.wallet.ClaimedTotal(),
	}))
}
