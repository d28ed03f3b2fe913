package wallet

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/storage"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	s := New(kv, WithUserID(func() string { return "user-1" }))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s, kv
}

func TestCreateWallet(t *testing.T) {
	s, _ := newStore(t)

	w, err := s.CreateWallet()
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}
	if !regexp.MustCompile(`^0x[0-9a-f]{40}$`).MatchString(w.Address) {
		t.Errorf("Address = %q, want 0x + 40 hex digits", w.Address)
	}
	if !w.Balance.IsZero() || !w.USDValue.IsZero() || w.UserID != "user-1" {
		t.Errorf("wallet = %+v", w)
	}

	again, err := s.CreateWallet()
	if err != nil {
		t.Fatalf("second CreateWallet() error = %v", err)
	}
	if again.ID != w.ID || again.Address != w.Address {
		t.Error("CreateWallet must return the existing wallet")
	}
}

func TestAddTransaction_RewardCreditsBalance(t *testing.T) {
	s, kv := newStore(t)
	s.CreateWallet()

	tx, err := s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(50)})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if tx.ID == "" || tx.Status != models.StatusCompleted || tx.FromAddress != constants.SystemAddress {
		t.Errorf("transaction = %+v", tx)
	}

	w, _ := s.Wallet()
	if !w.Balance.Equal(d(50)) {
		t.Errorf("Balance = %s, want 50", w.Balance)
	}
	if !w.USDValue.Equal(d(25)) {
		t.Errorf("USDValue = %s, want 25", w.USDValue)
	}

	reloaded := New(kv)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if !reloaded.Balance().Equal(d(50)) || len(reloaded.TransactionHistory()) != 1 {
		t.Error("balance and transaction must be persisted together")
	}
}

func TestAddTransaction_NonCrediting(t *testing.T) {
	s, _ := newStore(t)
	s.CreateWallet()

	s.AddTransaction(models.Transaction{Type: models.TransactionTransfer, Amount: d(10)})
	s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(10), Status: models.StatusPending})
	if !s.Balance().IsZero() {
		t.Errorf("Balance = %s, want 0", s.Balance())
	}
	if len(s.TransactionHistory()) != 2 {
		t.Errorf("history length = %d, want 2", len(s.TransactionHistory()))
	}
}

func TestAddTransaction_Errors(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(5)}); !errors.Is(err, apperr.ErrNoWallet) {
		t.Errorf("without wallet: err = %v, want ErrNoWallet", err)
	}

	s.CreateWallet()
	tests := []models.Transaction{
		{Type: "airdrop", Amount: d(5)},
		{Type: models.TransactionReward, Amount: d(-5)},
		{Type: models.TransactionReward, Amount: d(5), Status: "lost"},
	}
	for _, tx := range tests {
		if _, err := s.AddTransaction(tx); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("AddTransaction(%+v) = %v, want ErrValidation", tx, err)
		}
	}
}

func TestTransactionHistoryOrder(t *testing.T) {
	s, _ := newStore(t)
	s.CreateWallet()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.AddTransaction(models.Transaction{Type: models.TransactionTransfer, Amount: d(1), Timestamp: base, Description: "t1"})
	s.AddTransaction(models.Transaction{Type: models.TransactionTransfer, Amount: d(1), Timestamp: base.Add(2 * time.Hour), Description: "t3"})
	s.AddTransaction(models.Transaction{Type: models.TransactionTransfer, Amount: d(1), Timestamp: base.Add(time.Hour), Description: "t2a"})
	s.AddTransaction(models.Transaction{Type: models.TransactionTransfer, Amount: d(1), Timestamp: base.Add(time.Hour), Description: "t2b"})

	var got []string
	for _, tx := range s.TransactionHistory() {
		got = append(got, tx.Description)
	}
	want := []string{"t3", "t2a", "t2b", "t1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
	}
}

func TestClaimReward(t *testing.T) {
	s, kv := newStore(t)
	s.CreateWallet()

	r, err := s.AddReward(models.Reward{Amount: d(20), Reason: "5k run", ActivityID: "a-1"})
	if err != nil {
		t.Fatalf("AddReward() error = %v", err)
	}
	if !s.Balance().IsZero() {
		t.Error("adding a reward must not change the balance")
	}
	if len(s.PendingRewards()) != 1 {
		t.Errorf("pending = %d, want 1", len(s.PendingRewards()))
	}

	tx, err := s.ClaimReward(r.ID)
	if err != nil {
		t.Fatalf("ClaimReward() error = %v", err)
	}
	if tx.Description != "Claimed reward: 5k run" || !tx.Amount.Equal(d(20)) {
		t.Errorf("claim transaction = %+v", tx)
	}
	if !s.Balance().Equal(d(20)) {
		t.Errorf("Balance = %s, want 20", s.Balance())
	}

	_, err = s.ClaimReward(r.ID)
	if !errors.Is(err, apperr.ErrAlreadyClaimed) {
		t.Fatalf("second ClaimReward() = %v, want ErrAlreadyClaimed", err)
	}
	if !s.Balance().Equal(d(20)) {
		t.Errorf("Balance after double claim = %s, want 20", s.Balance())
	}
	if len(s.TransactionHistory()) != 1 {
		t.Errorf("transactions = %d, want 1", len(s.TransactionHistory()))
	}

	var rewards []models.Reward
	storage.Fetch(kv, constants.KeyRewards, &rewards)
	if len(rewards) != 1 || !rewards[0].Claimed || rewards[0].ClaimedAt == nil {
		t.Errorf("persisted rewards = %+v", rewards)
	}
}

func TestClaimReward_Errors(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.ClaimReward("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ClaimReward(missing) = %v, want ErrNotFound", err)
	}

	r, _ := s.AddReward(models.Reward{Amount: d(5), Reason: "walk"})
	if _, err := s.ClaimReward(r.ID); !errors.Is(err, apperr.ErrNoWallet) {
		t.Errorf("ClaimReward without wallet = %v, want ErrNoWallet", err)
	}
	if s.Rewards()[0].Claimed {
		t.Error("failed claim must leave the reward unclaimed")
	}
}

func TestClaimReward_PersistenceFailure(t *testing.T) {
	s, kv := newStore(t)
	s.CreateWallet()
	r, _ := s.AddReward(models.Reward{Amount: d(5), Reason: "walk"})

	kv.FailWrites = errors.New("disk full")
	if _, err := s.ClaimReward(r.ID); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("ClaimReward() = %v, want ErrPersistence", err)
	}
	if s.Rewards()[0].Claimed || !s.Balance().IsZero() || len(s.TransactionHistory()) != 0 {
		t.Error("state changed after a failed write")
	}

	kv.FailWrites = nil
	if _, err := s.ClaimReward(r.ID); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestAddReward_Validation(t *testing.T) {
	s, _ := newStore(t)
	for _, r := range []models.Reward{
		{Amount: d(0), Reason: "zero"},
		{Amount: d(5), Reason: "  "},
	} {
		if _, err := s.AddReward(r); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("AddReward(%+v) = %v, want ErrValidation", r, err)
		}
	}
}

func TestRewardTotals(t *testing.T) {
	s, _ := newStore(t)
	s.CreateWallet()
	a, _ := s.AddReward(models.Reward{Amount: d(10), Reason: "a"})
	s.AddReward(models.Reward{Amount: d(15), Reason: "b"})
	s.ClaimReward(a.ID)

	if got := s.TotalRewards(); !got.Equal(d(25)) {
		t.Errorf("TotalRewards() = %s, want 25", got)
	}
	if got := s.ClaimedTotal(); !got.Equal(d(10)) {
		t.Errorf("ClaimedTotal() = %s, want 10", got)
	}
}

func TestConvertToUSD(t *testing.T) {
	s, _ := newStore(t)
	if got := s.ConvertToUSD(d(50)); !got.Equal(d(25)) {
		t.Errorf("ConvertToUSD(50) = %s, want 25", got)
	}
	if got := ConvertAt(d(10), decimal.RequireFromString("1.25")); !got.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("ConvertAt() = %s", got)
	}
}

func TestVerifyAndRepairLedger(t *testing.T) {
	s, kv := newStore(t)
	if _, err := s.VerifyLedger(); !errors.Is(err, apperr.ErrNoWallet) {
		t.Errorf("VerifyLedger() without wallet = %v", err)
	}

	s.CreateWallet()
	s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(30)})

	report, _ := s.VerifyLedger()
	if !report.Consistent {
		t.Errorf("report = %+v, want consistent", report)
	}

	// Corrupt the stored balance and reload.
	w, _ := s.Wallet()
	w.Balance = d(999)
	storage.Put(kv, constants.KeyWallet, w)
	s.Load()

	report, _ = s.VerifyLedger()
	if report.Consistent || !report.Ledger.Equal(d(30)) {
		t.Errorf("report = %+v, want drift with ledger 30", report)
	}

	repaired, err := s.RepairBalance()
	if err != nil {
		t.Fatalf("RepairBalance() error = %v", err)
	}
	if !repaired.Balance.Equal(d(30)) || !repaired.USDValue.Equal(d(15)) {
		t.Errorf("repaired wallet = %+v", repaired)
	}
}

func TestClaimReward_Concurrent(t *testing.T) {
	s, _ := newStore(t)
	s.CreateWallet()
	r, err := s.AddReward(models.Reward{Amount: d(50), Reason: "marathon"})
	if err != nil {
		t.Fatalf("AddReward() error = %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ClaimReward(r.ID)
		}(i)
	}
	wg.Wait()

	var claimed int
	for i, err := range errs {
		switch {
		case err == nil:
			claimed++
		case !errors.Is(err, apperr.ErrAlreadyClaimed):
			t.Errorf("claim %d: err = %v, want ErrAlreadyClaimed", i, err)
		}
	}
	if claimed != 1 {
		t.Errorf("successful claims = %d, want 1", claimed)
	}
	if !s.Balance().Equal(d(50)) {
		t.Errorf("Balance = %s, want 50", s.Balance())
	}
	if got := len(s.TransactionHistory()); got != 1 {
		t.Errorf("transactions = %d, want 1", got)
	}
}

func TestAddTransaction_HashFailure(t *testing.T) {
	s, kv := newStore(t)
	s.CreateWallet()

	orig := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
	defer func() { randRead = orig }()

	if _, err := s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(10)}); err == nil {
		t.Fatal("AddTransaction() succeeded without a hash")
	}
	if !s.Balance().IsZero() || len(s.TransactionHistory()) != 0 {
		t.Error("state changed after hash failure")
	}
	var txs []models.Transaction
	if ok, _ := storage.Fetch(kv, constants.KeyTransactions, &txs); ok && len(txs) != 0 {
		t.Errorf("persisted transactions = %+v", txs)
	}
}

func TestSubscribeDeliversInCommitOrder(t *testing.T) {
	s, _ := newStore(t)
	s.CreateWallet()
	const n = 32

	var mu sync.Mutex
	var seen []int
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, len(snap.Transactions))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddTransaction(models.Transaction{Type: models.TransactionReward, Amount: d(1)})
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("notifications = %d, want %d", len(seen), n)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("snapshot %d has %d transactions after %d", i, seen[i], seen[i-1])
		}
	}
}
