package tracking

import (
	"fmt"
	"strings"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/stats"
)

// DashboardCmd prints the home overview: today's metrics, nutrition
// progress, the wallet and the last seven days.
type DashboardCmd struct{}

func (c *DashboardCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	snap := ctx.Auth.Snapshot()
	m := ctx.Health.Metrics()

	fmt.Println(cli.Title(fmt.Sprintf("Hello, %s. Here is %s.", snap.User.FullName, m.Date)))
	fmt.Println(cli.Box(metricsRows(m)))
	fmt.Println(cli.Box(nutritionPanel(ctx)))

	if w, err := ctx.Wallet.Wallet(); err == nil {
		pending := len(ctx.Wallet.PendingRewards())
		fmt.Println(cli.Box(cli.Rows([][2]string{
			{"Balance", cli.FormatTokens(w.Balance)},
			{"Value", cli.FormatUSD(ctx.Wallet.ConvertToUSD(w.Balance))},
			{"Pending", fmt.Sprintf("%d rewards", pending)},
		})))
	} else {
		fmt.Println(cli.Warning("No wallet yet, run 'healthchain wallet create'"))
	}

	week := stats.WeeklyStats(ctx.Now(), m, ctx.Health.MetricsHistory(), ctx.Health.Activities(), ctx.Health.Meals())
	var b strings.Builder
	for i, d := range week {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %6d steps  %5d kcal  %d activities  %d meals", d.Date, d.Steps, d.Calories, d.Activities, d.Meals)
	}
	fmt.Println(cli.Title("This week"))
	fmt.Println(b.String())
	return nil
}

type AchievementsCmd struct{}

func (c *AchievementsCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	list := stats.Achievements(stats.AchievementInput{
		Today:      ctx.Now(),
		Metrics:    append(ctx.Health.MetricsHistory(), ctx.Health.Metrics()),
		Activities: ctx.Health.Activities(),
		Meals:      ctx.Health.Meals(),
		Earned:     ctx.Wallet.ClaimedTotal(),
	})
	for _, a := range list {
		mark := "○"
		if a.Unlocked {
			mark = "●"
		}
		fmt.Printf("%s %-16s %s\n", mark, a.Title, a.Description)
	}
	return nil
}
