package wallets

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/models"
)

type RewardCmd struct {
	Add   RewardAddCmd   `cmd:"" help:"Record an unclaimed reward."`
	List  RewardListCmd  `cmd:"" help:"List rewards." default:"1"`
	Claim RewardClaimCmd `cmd:"" help:"Claim a reward into the wallet."`
	Total RewardTotalCmd `cmd:"" help:"Show reward totals."`
}

type RewardAddCmd struct {
	Amount   string `arg:"" help:"Token amount."`
	Reason   string `arg:"" help:"What the reward is for."`
	Activity string `help:"Activity the reward belongs to."`
	Meal     string `help:"Meal the reward belongs to."`
}

func (c *RewardAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}
	if c.Activity != "" {
		if _, err := ctx.Health.Activity(c.Activity); err != nil {
			return err
		}
	}
	r, err := ctx.Wallet.AddReward(models.Reward{
		Amount:     amount,
		Reason:     c.Reason,
		ActivityID: c.Activity,
		MealID:     c.Meal,
	})
	if err != nil {
		return err
	}
	fmt.Println(cli.Success(fmt.Sprintf("Reward of %s recorded", cli.FormatTokens(r.Amount))))
	fmt.Printf("  ID: %s\n", r.ID)
	return nil
}

type RewardListCmd struct {
	Pending bool `help:"Only unclaimed rewards."`
}

func (c *RewardListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	rewards := ctx.Wallet.Rewards()
	if c.Pending {
		rewards = ctx.Wallet.PendingRewards()
	}
	if len(rewards) == 0 {
		fmt.Println("No rewards.")
		return nil
	}
	for _, r := range rewards {
		status := "pending"
		if r.Claimed {
			status = "claimed"
		}
		fmt.Printf("%s  %-7s %14s  %-32s %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), status, cli.FormatTokens(r.Amount), r.Reason, r.ID)
	}
	return nil
}

type RewardClaimCmd struct {
	ID string `arg:"" help:"ID of the reward."`
}

func (c *RewardClaimCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	tx, err := ctx.Wallet.ClaimReward(c.ID)
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()
	fmt.Println(cli.Success(fmt.Sprintf("Claimed %s", cli.FormatTokens(tx.Amount))))
	fmt.Printf("  Transaction: %s\n", tx.Hash)
	fmt.Printf("  Balance: %s\n", cli.FormatTokens(ctx.Wallet.Balance()))
	return nil
}

type RewardTotalCmd struct{}

func (c *RewardTotalCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	total := ctx.Wallet.TotalRewards()
	claimed := ctx.Wallet.ClaimedTotal()
	fmt.Println(cli.Rows([][2]string{
		{"All rewards", cli.FormatTokens(total)},
		{"Claimed", cli.FormatTokens(claimed)},
		{"Pending", cli.FormatTokens(total.Sub(claimed))},
	}))
	return nil
}
