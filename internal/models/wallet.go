package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionReward   TransactionType = "reward"
	TransactionTransfer TransactionType = "transfer"
	TransactionSwap     TransactionType = "swap"
)

func (t TransactionType) Valid() bool {
	return t == TransactionReward || t == TransactionTransfer || t == TransactionSwap
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

// Wallet holds the HCH token balance for the signed-in user. Balance is
// derived from the transaction log and is never set directly.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	USDValue  decimal.Decimal `json:"usd_value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Transaction struct {
	ID          string            `json:"id"`
	WalletID    string            `json:"wallet_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	FromAddress string            `json:"from_address"`
	ToAddress   string            `json:"to_address"`
	Status      TransactionStatus `json:"status"`
	Hash        string            `json:"hash,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
}

// Credits reports whether t counts toward the wallet balance.
func (t Transaction) Credits() bool {
	return t.Type == TransactionReward && t.Status == StatusCompleted
}

type Reward struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	ActivityID string          `json:"activity_id,omitempty"`
	MealID     string          `json:"meal_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Claimed    bool            `json:"claimed"`
	ClaimedAt  *time.Time      `json:"claimed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
