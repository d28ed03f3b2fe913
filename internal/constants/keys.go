package constants

// Persisted blob keys. Each one is read and written as an independent record.
const (
	KeyUser           = "user"
	KeyUserToken      = "userToken"
	KeyTodayMetrics   = "todayMetrics"
	KeyMetricsHistory = "metricsHistory"
	KeyActivities     = "activities"
	KeyMeals          = "meals"
	KeyNutritionGoals = "nutritionGoals"
	KeyWallet         = "wallet"
	KeyTransactions   = "transactions"
	KeyRewards        = "rewards"
)

const (
	// Default nutrition goals
	DefaultGoalCalories = 2000
	DefaultGoalProtein  = 150
	DefaultGoalCarbs    = 250
	DefaultGoalFat      = 65
	DefaultGoalWater    = 2000

	// Password rules for registration
	MinPasswordLength = 6

	// MockTokenUSDRate is the fixed HCH -> USD exchange rate
	MockTokenUSDRate = "0.50"

	// TokenSymbol is the reward token ticker
	TokenSymbol = "HCH"

	// SystemAddress is the sender of reward transactions
	SystemAddress = "system"
)
