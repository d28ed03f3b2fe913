package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/models"
)

// ValidateLogin rejects a login with a blank email or password.
func ValidateLogin(c models.LoginCredentials) error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return apperr.Validation("please fill in all fields")
	}
	return nil
}

// ValidateRegister rejects blank fields, mismatched passwords and short passwords.
func ValidateRegister(c models.RegisterCredentials) error {
	if strings.TrimSpace(c.FullName) == "" || strings.TrimSpace(c.Email) == "" ||
		c.Password == "" || c.ConfirmPassword == "" {
		return apperr.Validation("please fill in all fields")
	}
	if c.Password != c.ConfirmPassword {
		return apperr.Validation("passwords do not match")
	}
	if len(c.Password) < constants.MinPasswordLength {
		return apperr.Validationf("password must be at least %d characters", constants.MinPasswordLength)
	}
	return nil
}

// ConflictType represents the type of integrity problem
type ConflictType string

const (
	ConflictDuplicateID     ConflictType = "duplicate_id"
	ConflictNegativeValue   ConflictType = "negative_value"
	ConflictInvalidDate     ConflictType = "invalid_date"
	ConflictClaimTimestamp  ConflictType = "claim_timestamp"
	ConflictBalanceDrift    ConflictType = "balance_drift"
	ConflictUnknownWallet   ConflictType = "unknown_wallet"
	ConflictUnknownCategory ConflictType = "unknown_category"
)

// Conflict represents one problem found in persisted data
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // IDs of the records involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

func (vr *ValidationResult) add(t ConflictType, desc string, items ...string) {
	vr.Conflicts = append(vr.Conflicts, Conflict{Type: t, Description: desc, Items: items})
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Data is the persisted state checked by Validate.
type Data struct {
	Metrics      models.DailyMetrics
	Activities   []models.Activity
	Meals        []models.Meal
	Wallet       *models.Wallet
	Transactions []models.Transaction
	Rewards      []models.Reward
}

// Validator checks persisted records for integrity problems
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// Validate runs every integrity check over d.
func (v *Validator) Validate(d Data) ValidationResult {
	var result ValidationResult
	v.checkMetrics(&result, d.Metrics)
	v.checkActivities(&result, d.Activities)
	v.checkMeals(&result, d.Meals)
	v.checkLedger(&result, d.Wallet, d.Transactions)
	v.checkRewards(&result, d.Rewards)
	return result
}

func (v *Validator) checkMetrics(result *ValidationResult, m models.DailyMetrics) {
	if _, err := time.Parse(constants.DateFormat, m.Date); err != nil {
		result.add(ConflictInvalidDate, fmt.Sprintf("Daily metrics date %q is not a valid date", m.Date))
	}
	if m.Steps < 0 || m.Calories < 0 || m.Water < 0 || m.Sleep < 0 || m.HeartRate < 0 || m.Distance < 0 {
		result.add(ConflictNegativeValue, fmt.Sprintf("Daily metrics for %s contain negative values", m.Date))
	}
}

func (v *Validator) checkActivities(result *ValidationResult, activities []models.Activity) {
	seen := make(map[string]bool, len(activities))
	for _, a := range activities {
		if seen[a.ID] {
			result.add(ConflictDuplicateID, fmt.Sprintf("Activity id %s appears more than once", a.ID), a.ID)
		}
		seen[a.ID] = true

		if a.Calories < 0 || a.Duration < 0 || a.Distance < 0 {
			result.add(ConflictNegativeValue, fmt.Sprintf("Activity %s has negative values", a.ID), a.ID)
		}
		if !a.Type.Valid() || !a.Intensity.Valid() {
			result.add(ConflictUnknownCategory, fmt.Sprintf("Activity %s has unknown type %q or intensity %q", a.ID, a.Type, a.Intensity), a.ID)
		}
	}
}

func (v *Validator) checkMeals(result *ValidationResult, meals []models.Meal) {
	seen := make(map[string]bool, len(meals))
	for _, m := range meals {
		if seen[m.ID] {
			result.add(ConflictDuplicateID, fmt.Sprintf("Meal id %s appears more than once", m.ID), m.ID)
		}
		seen[m.ID] = true

		if m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
			result.add(ConflictNegativeValue, fmt.Sprintf("Meal %q (%s) has negative values", m.Name, m.ID), m.ID)
		}
		if !m.MealType.Valid() {
			result.add(ConflictUnknownCategory, fmt.Sprintf("Meal %q (%s) has unknown meal type %q", m.Name, m.ID, m.MealType), m.ID)
		}
	}
}

func (v *Validator) checkLedger(result *ValidationResult, w *models.Wallet, txs []models.Transaction) {
	seen := make(map[string]bool, len(txs))
	credited := decimal.Zero
	for _, tx := range txs {
		if seen[tx.ID] {
			result.add(ConflictDuplicateID, fmt.Sprintf("Transaction id %s appears more than once", tx.ID), tx.ID)
		}
		seen[tx.ID] = true

		if tx.Amount.IsNegative() {
			result.add(ConflictNegativeValue, fmt.Sprintf("Transaction %s has a negative amount", tx.ID), tx.ID)
		}
		if w != nil && tx.WalletID != w.ID {
			result.add(ConflictUnknownWallet, fmt.Sprintf("Transaction %s belongs to unknown wallet %s", tx.ID, tx.WalletID), tx.ID)
		}
		if tx.Credits() {
			credited = credited.Add(tx.Amount)
		}
	}

	if w == nil {
		if len(txs) > 0 {
			result.add(ConflictUnknownWallet, fmt.Sprintf("%d transaction(s) exist but no wallet does", len(txs)))
		}
		return
	}
	if !w.Balance.Equal(credited) {
		result.add(ConflictBalanceDrift, fmt.Sprintf("Wallet balance %s %s does not match ledger total %s %s",
			w.Balance.String(), constants.TokenSymbol, credited.String(), constants.TokenSymbol), w.ID)
	}
}

func (v *Validator) checkRewards(result *ValidationResult, rewards []models.Reward) {
	seen := make(map[string]bool, len(rewards))
	for _, r := range rewards {
		if seen[r.ID] {
			result.add(ConflictDuplicateID, fmt.Sprintf("Reward id %s appears more than once", r.ID), r.ID)
		}
		seen[r.ID] = true

		if r.Amount.IsNegative() {
			result.add(ConflictNegativeValue, fmt.Sprintf("Reward %s has a negative amount", r.ID), r.ID)
		}
		if r.Claimed != (r.ClaimedAt != nil) {
			result.add(ConflictClaimTimestamp, fmt.Sprintf("Reward %s claimed flag and claim timestamp disagree", r.ID), r.ID)
		}
	}
}
