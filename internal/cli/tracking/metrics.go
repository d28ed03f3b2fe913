package tracking

import (
	"fmt"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/models"
)

type MetricsCmd struct {
	Show MetricsShowCmd `cmd:"" help:"Show today's metrics." default:"1"`
	Set  MetricsSetCmd  `cmd:"" help:"Update today's metrics. Only the given fields change."`
}

type MetricsShowCmd struct {
	History bool `help:"Also list archived days."`
}

func (c *MetricsShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	m := ctx.Health.Metrics()
	fmt.Println(cli.Title("Metrics for " + m.Date))
	fmt.Println(metricsRows(m))

	if c.History {
		history := ctx.Health.MetricsHistory()
		fmt.Println()
		if len(history) == 0 {
			fmt.Println("No archived days.")
			return nil
		}
		fmt.Println(cli.Title("History"))
		for _, h := range history {
			fmt.Printf("  %s  %6d steps  %5d kcal  %5d ml  %.1f h\n", h.Date, h.Steps, h.Calories, h.Water, h.Sleep)
		}
	}
	return nil
}

func metricsRows(m models.DailyMetrics) string {
	return cli.Rows([][2]string{
		{"Steps", fmt.Sprintf("%d", m.Steps)},
		{"Calories", fmt.Sprintf("%d kcal", m.Calories)},
		{"Water", fmt.Sprintf("%d ml", m.Water)},
		{"Sleep", fmt.Sprintf("%.1f h", m.Sleep)},
		{"Heart rate", fmt.Sprintf("%d bpm", m.HeartRate)},
		{"Distance", fmt.Sprintf("%.2f km", m.Distance)},
	})
}

type MetricsSetCmd struct {
	Steps     *int     `help:"Step count."`
	Calories  *int     `help:"Calories burned."`
	Water     *int     `help:"Water intake in ml."`
	Sleep     *float64 `help:"Hours slept."`
	HeartRate *int     `help:"Resting heart rate in bpm."`
	Distance  *float64 `help:"Distance in km."`
}

func (c *MetricsSetCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	m, err := ctx.Health.UpdateMetrics(models.MetricsUpdate{
		Steps:     c.Steps,
		Calories:  c.Calories,
		Water:     c.Water,
		Sleep:     c.Sleep,
		HeartRate: c.HeartRate,
		Distance:  c.Distance,
	})
	if err != nil {
		return err
	}
	fmt.Println(cli.Success("Metrics updated"))
	fmt.Println(metricsRows(m))
	return nil
}
