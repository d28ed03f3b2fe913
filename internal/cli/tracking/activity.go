package tracking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/stats"
	"github.com/julianstephens/healthchain/internal/utils"
)

type ActivityCmd struct {
	Add    ActivityAddCmd    `cmd:"" help:"Log an activity."`
	List   ActivityListCmd   `cmd:"" help:"List logged activities." default:"1"`
	Delete ActivityDeleteCmd `cmd:"" help:"Delete an activity and reverse its calories."`
}

type ActivityAddCmd struct {
	Type      string  `arg:"" help:"One of running, cycling, gym, walking, swimming, yoga."`
	Duration  int     `short:"d" required:"" help:"Duration in minutes."`
	Calories  int     `short:"c" help:"Calories burned."`
	Distance  float64 `help:"Distance in km."`
	Intensity string  `short:"i" help:"low, medium or high. Defaults to medium."`
	Start     string  `help:"Start time as HH:MM or 'YYYY-MM-DD HH:MM'. Defaults to now."`
	Notes     string  `help:"Free-form notes."`
	Reward    string  `help:"Also record an unclaimed reward of this many tokens."`
}

func (c *ActivityAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	start, err := utils.ParseWhen(c.Start, ctx.Now())
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	var reward decimal.Decimal
	if c.Reward != "" {
		if reward, err = decimal.NewFromString(c.Reward); err != nil {
			return fmt.Errorf("invalid --reward %q: %w", c.Reward, err)
		}
	}

	a, err := ctx.Health.AddActivity(models.Activity{
		Type:      models.ActivityType(c.Type),
		Duration:  c.Duration,
		Calories:  c.Calories,
		Distance:  c.Distance,
		Intensity: models.Intensity(c.Intensity),
		StartTime: start,
		Notes:     c.Notes,
	})
	if err != nil {
		return err
	}
	fmt.Println(cli.Success(fmt.Sprintf("Logged %s for %d min (%d kcal)", a.Type, a.Duration, a.Calories)))
	fmt.Printf("  ID: %s\n", a.ID)

	if c.Reward != "" {
		r, err := ctx.Wallet.AddReward(models.Reward{
			ActivityID: a.ID,
			Amount:     reward,
			Reason:     "Completed " + string(a.Type) + " activity",
		})
		if err != nil {
			return fmt.Errorf("activity saved but reward failed: %w", err)
		}
		fmt.Println(cli.Success("Reward pending: " + cli.FormatTokens(r.Amount)))
	}
	return nil
}

type ActivityListCmd struct{}

func (c *ActivityListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	activities := ctx.Health.Activities()
	if len(activities) == 0 {
		fmt.Println("No activities logged.")
		return nil
	}

	for _, a := range activities {
		fmt.Printf("%s  %-9s %4d min  %5d kcal  %6.2f km  %-6s  %s\n",
			a.StartTime.Format("2006-01-02 15:04"), a.Type, a.Duration, a.Calories, a.Distance, a.Intensity, a.ID)
	}
	sum := stats.ActivitySummary(activities)
	fmt.Printf("\n%d workouts, %d min, %d kcal, %.2f km\n", sum.Workouts, sum.Duration, sum.Calories, sum.Distance)
	return nil
}

type ActivityDeleteCmd struct {
	ID string `arg:"" help:"ID of the activity."`
}

func (c *ActivityDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Health.DeleteActivity(c.ID); err != nil {
		return err
	}
	fmt.Println(cli.Success("Deleted activity " + c.ID))
	return nil
}
