// Package wallet holds the mock HCH token wallet, its transaction log and
// the rewards waiting to be claimed into it.
package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/logger"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/notifier"
	"github.com/julianstephens/healthchain/internal/storage"
)

// MockRate is the fixed USD price of one HCH.
var MockRate = decimal.RequireFromString(constants.MockTokenUSDRate)

// ConvertToUSD prices amount at MockRate.
func ConvertToUSD(amount decimal.Decimal) decimal.Decimal {
	return ConvertAt(amount, MockRate)
}

// ConvertAt prices amount at rate.
func ConvertAt(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// Snapshot is a copy of the store's state handed to subscribers.
type Snapshot struct {
	Wallet       *models.Wallet       `json:"wallet,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Rewards      []models.Reward      `json:"rewards"`
}

// LedgerReport compares the stored balance with the transaction log.
type LedgerReport struct {
	Balance    decimal.Decimal `json:"balance"`
	Ledger     decimal.Decimal `json:"ledger"`
	Consistent bool            `json:"consistent"`
}

type state struct {
	wallet  *models.Wallet
	txs     []models.Transaction
	rewards []models.Reward
}

func (st *state) clone() *state {
	c := &state{
		txs:     append([]models.Transaction(nil), st.txs...),
		rewards: append([]models.Reward(nil), st.rewards...),
	}
	if st.wallet != nil {
		w := *st.wallet
		c.wallet = &w
	}
	return c
}

func (st *state) snapshot() Snapshot {
	snap := Snapshot{
		Transactions: append([]models.Transaction{}, st.txs...),
		Rewards:      append([]models.Reward{}, st.rewards...),
	}
	if st.wallet != nil {
		w := *st.wallet
		snap.Wallet = &w
	}
	return snap
}

// Option configures a Store.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUserID supplies the id stamped on new wallets and rewards.
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
		st:     &state{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the wallet, transactions and rewards from storage.
func (s *Store) Load() error {
	st := &state{}
	var w models.Wallet
	hasWallet, err := storage.Fetch(s.kv, constants.KeyWallet, &w)
	if err != nil {
		return apperr.Persistence("load wallet", err)
	}
	if hasWallet {
		st.wallet = &w
	}
	if _, err := storage.Fetch(s.kv, constants.KeyTransactions, &st.txs); err != nil {
		return apperr.Persistence("load transactions", err)
	}
	if _, err := storage.Fetch(s.kv, constants.KeyRewards, &st.rewards); err != nil {
		return apperr.Persistence("load rewards", err)
	}

	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
	return nil
}

type dirty struct {
	wallet, txs, rewards bool
}

// mutate runs fn on a copy of the state, persists every touched record in
// one write and only then swaps the copy in.
func (s *Store) mutate(op string, fn func(*state, *dirty) error) error {
	s.mu.Lock()

	next := s.st.clone()
	var d dirty
	if err := fn(next, &d); err != nil {
		s.mu.Unlock()
		return err
	}

	var ops []storage.Op
	records := []struct {
		set bool
		key string
		v   any
	}{
		{d.rewards, constants.KeyRewards, next.rewards},
		{d.txs, constants.KeyTransactions, next.txs},
		{d.wallet, constants.KeyWallet, next.wallet},
	}
	for _, r := range records {
		if !r.set {
			continue
		}
		o, err := storage.PutOp(r.key, r.v)
		if err != nil {
			s.mu.Unlock()
			return apperr.Persistence(op, err)
		}
		ops = append(ops, o)
	}
	if len(ops) == 0 {
		s.mu.Unlock()
		return nil
	}

	if err := s.kv.Write(ops...); err != nil {
		s.mu.Unlock()
		logger.Error("Failed to persist wallet data", "op", op, "error", err)
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

// NewAddress returns a mock address: 0x followed by 40 hex digits.
func NewAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("failed to generate address: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// randRead is crypto/rand.Read, swapped in tests.
var randRead = rand.Read

func newHash() (string, error) {
	b := make([]byte, 32)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("failed to generate transaction hash: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// CreateWallet creates the wallet with a zero balance. If one already
// exists it is returned unchanged.
func (s *Store) CreateWallet() (models.Wallet, error) {
	var out models.Wallet
	err := s.mutate("create wallet", func(st *state, d *dirty) error {
		if st.wallet != nil {
			out = *st.wallet
			return nil
		}
		addr, err := NewAddress()
		if err != nil {
			return err
		}
		now := s.now()
		w := models.Wallet{
			ID:        uuid.New().String(),
			UserID:    s.userID(),
			Address:   addr,
			Balance:   decimal.Zero,
			USDValue:  decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		st.wallet = &w
		d.wallet = true
		out = w
		logger.Info("Created wallet", "wallet_id", w.ID, "address", w.Address)
		return nil
	})
	return out, err
}

// Wallet returns the wallet, or ErrNoWallet.
func (s *Store) Wallet() (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.wallet == nil {
		return models.Wallet{}, apperr.ErrNoWallet
	}
	return *s.st.wallet, nil
}

// Balance returns the wallet balance, zero when there is no wallet.
func (s *Store) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.wallet == nil {
		return decimal.Zero
	}
	return s.st.wallet.Balance
}

func (s *Store) prepareTransaction(st *state, tx models.Transaction) (models.Transaction, error) {
	if st.wallet == nil {
		return models.Transaction{}, apperr.ErrNoWallet
	}
	if tx.Status == "" {
		tx.Status = models.StatusCompleted
	}
	if !tx.Type.Valid() {
		return models.Transaction{}, apperr.Validationf("unknown transaction type %q", tx.Type)
	}
	if !tx.Status.Valid() {
		return models.Transaction{}, apperr.Validationf("unknown transaction status %q", tx.Status)
	}
	if !tx.Amount.IsPositive() {
		return models.Transaction{}, apperr.Validation("transaction amount must be positive")
	}

	tx.ID = uuid.New().String()
	tx.WalletID = st.wallet.ID
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.now()
	}
	if tx.Type == models.TransactionReward {
		if tx.FromAddress == "" {
			tx.FromAddress = constants.SystemAddress
		}
		if tx.ToAddress == "" {
			tx.ToAddress = st.wallet.Address
		}
	}
	if tx.Hash == "" {
		hash, err := newHash()
		if err != nil {
			return models.Transaction{}, err
		}
		tx.Hash = hash
	}
	return tx, nil
}

// apply appends tx and, for completed rewards, credits the wallet.
func (s *Store) apply(st *state, d *dirty, tx models.Transaction) {
	st.txs = append(st.txs, tx)
	d.txs = true
	if tx.Credits() {
		st.wallet.Balance = st.wallet.Balance.Add(tx.Amount)
		st.wallet.USDValue = ConvertToUSD(st.wallet.Balance)
		st.wallet.UpdatedAt = s.now()
		d.wallet = true
	}
}

// AddTransaction records tx. A completed reward transaction also credits
// the balance; both are persisted in one write.
func (s *Store) AddTransaction(tx models.Transaction) (models.Transaction, error) {
	var out models.Transaction
	err := s.mutate("add transaction", func(st *state, d *dirty) error {
		prepared, err := s.prepareTransaction(st, tx)
		if err != nil {
			return err
		}
		s.apply(st, d, prepared)
		out = prepared
		return nil
	})
	return out, err
}

// TransactionHistory returns transactions newest first. Equal timestamps
// keep insertion order.
func (s *Store) TransactionHistory() []models.Transaction {
	s.mu.Lock()
	out := append([]models.Transaction{}, s.st.txs...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// AddReward records an unclaimed reward. It does not touch the balance.
func (s *Store) AddReward(r models.Reward) (models.Reward, error) {
	if !r.Amount.IsPositive() {
		return models.Reward{}, apperr.Validation("reward amount must be positive")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return models.Reward{}, apperr.Validation("reward reason cannot be empty")
	}
	r.ID = uuid.New().String()
	if r.UserID == "" {
		r.UserID = s.userID()
	}
	r.Claimed = false
	r.ClaimedAt = nil
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	err := s.mutate("add reward", func(st *state, d *dirty) error {
		st.rewards = append(st.rewards, r)
		d.rewards = true
		return nil
	})
	if err != nil {
		return models.Reward{}, err
	}
	return r, nil
}

// ClaimReward marks the reward claimed, records the reward transaction and
// credits the wallet in a single write. Claiming twice fails with
// ErrAlreadyClaimed.
func (s *Store) ClaimReward(id string) (models.Transaction, error) {
	var out models.Transaction
	err := s.mutate("claim reward", func(st *state, d *dirty) error {
		idx := -1
		for i := range st.rewards {
			if st.rewards[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.NotFound("reward", id)
		}
		r := st.rewards[idx]
		if r.Claimed {
			return fmt.Errorf("%w: %s", apperr.ErrAlreadyClaimed, id)
		}

		now := s.now()
		tx, err := s.prepareTransaction(st, models.Transaction{
			Type:        models.TransactionReward,
			Amount:      r.Amount,
			FromAddress: constants.SystemAddress,
			Status:      models.StatusCompleted,
			Timestamp:   now,
			Description: "Claimed reward: " + r.Reason,
		})
		if err != nil {
			return err
		}

		r.Claimed = true
		r.ClaimedAt = &now
		st.rewards[idx] = r
		d.rewards = true
		s.apply(st, d, tx)
		out = tx
		return nil
	})
	if err == nil {
		logger.Info("Claimed reward", "reward_id", id, "amount", out.Amount.String())
	}
	return out, err
}

func (s *Store) Rewards() []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Reward{}, s.st.rewards...)
}

// PendingRewards returns the unclaimed rewards.
func (s *Store) PendingRewards() []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reward
	for _, r := range s.st.rewards {
		if !r.Claimed {
			out = append(out, r)
		}
	}
	return out
}

// TotalRewards sums every reward, claimed or not.
func (s *Store) TotalRewards() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, r := range s.st.rewards {
		total = total.Add(r.Amount)
	}
	return total
}

// ClaimedTotal sums only claimed rewards.
func (s *Store) ClaimedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, r := range s.st.rewards {
		if r.Claimed {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// ConvertToUSD prices amount at MockRate.
func (s *Store) ConvertToUSD(amount decimal.Decimal) decimal.Decimal {
	return ConvertToUSD(amount)
}

// VerifyLedger recomputes the balance from the transaction log.
func (s *Store) VerifyLedger() (LedgerReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.wallet == nil {
		return LedgerReport{}, apperr.ErrNoWallet
	}
	ledger := ledgerTotal(s.st.txs)
	return LedgerReport{
		Balance:    s.st.wallet.Balance,
		Ledger:     ledger,
		Consistent: s.st.wallet.Balance.Equal(ledger),
	}, nil
}

// RepairBalance resets the stored balance to the ledger total.
func (s *Store) RepairBalance() (models.Wallet, error) {
	var out models.Wallet
	err := s.mutate("repair balance", func(st *state, d *dirty) error {
		if st.wallet == nil {
			return apperr.ErrNoWallet
		}
		ledger := ledgerTotal(st.txs)
		if !st.wallet.Balance.Equal(ledger) {
			logger.Warn("Repairing wallet balance", "balance", st.wallet.Balance.String(), "ledger", ledger.String())
			st.wallet.Balance = ledger
			st.wallet.USDValue = ConvertToUSD(ledger)
			st.wallet.UpdatedAt = s.now()
			d.wallet = true
		}
		out = *st.wallet
		return nil
	})
	return out, err
}

func ledgerTotal(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Credits() {
			total = total.Add(tx.Amount)
		}
	}
	return total
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
