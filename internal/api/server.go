// Package api serves the auth, health and wallet stores as a local JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/julianstephens/healthchain/internal/auth"
	"github.com/julianstephens/healthchain/internal/health"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/wallet"
)

type Server struct {
	auth   *auth.Store
	health *health.Store
	wallet *wallet.Store
	now    func() time.Time
	router *mux.Router
	obs    *instruments
}

func New(authStore *auth.Store, healthStore *health.Store, walletStore *wallet.Store) *Server {
	s := &Server{
		auth:   authStore,
		health: healthStore,
		wallet: walletStore,
		now:    time.Now,
		obs:    newInstruments(walletStore),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.obs.middleware, logRequests)

	// Prometheus scrape endpoint, outside the session-guarded API
	r.Handle("/metrics", s.obs.handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/session/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/session", s.handleLogout).Methods(http.MethodDelete)

	// Everything below needs a signed-in user.
	app := api.NewRoute().Subrouter()
	app.Use(s.requireSession)

	app.HandleFunc("/metrics", s.handleGetMetrics).Methods(http.MethodGet)
	app.HandleFunc("/metrics", s.handleUpdateMetrics).Methods(http.MethodPatch)
	app.HandleFunc("/metrics/history", s.handleMetricsHistory).Methods(http.MethodGet)

	app.HandleFunc("/activities", s.handleListActivities).Methods(http.MethodGet)
	app.HandleFunc("/activities", s.handleAddActivity).Methods(http.MethodPost)
	app.HandleFunc("/activities/{id}", s.handleDeleteActivity).Methods(http.MethodDelete)

	app.HandleFunc("/meals", s.handleListMeals).Methods(http.MethodGet)
	app.HandleFunc("/meals", s.handleAddMeal).Methods(http.MethodPost)
	app.HandleFunc("/meals/{id}", s.handleDeleteMeal).Methods(http.MethodDelete)

	app.HandleFunc("/goals", s.handleGetGoals).Methods(http.MethodGet)
	app.HandleFunc("/goals", s.handleUpdateGoals).Methods(http.MethodPatch)
	app.HandleFunc("/nutrition", s.handleNutrition).Methods(http.MethodGet)

	app.HandleFunc("/wallet", s.handleGetWallet).Methods(http.MethodGet)
	app.HandleFunc("/wallet", s.handleCreateWallet).Methods(http.MethodPost)
	app.HandleFunc("/wallet/convert", s.handleConvert).Methods(http.MethodGet)
	app.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	app.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)

	app.HandleFunc("/rewards", s.handleListRewards).Methods(http.MethodGet)
	app.HandleFunc("/rewards", s.handleAddReward).Methods(http.MethodPost)
	app.HandleFunc("/rewards/total", s.handleRewardTotals).Methods(http.MethodGet)
	app.HandleFunc("/rewards/{id}/claim", s.handleClaimReward).Methods(http.MethodPost)

	app.HandleFunc("/stats/weekly", s.handleWeeklyStats).Methods(http.MethodGet)
	app.HandleFunc("/stats/activities", s.handleActivitySummary).Methods(http.MethodGet)
	app.HandleFunc("/achievements", s.handleAchievements).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "no such endpoint")
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("API shutting down")
	return srv.Shutdown(shutdownCtx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Handled request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.Snapshot().State != auth.StateLoggedIn {
			WriteError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
