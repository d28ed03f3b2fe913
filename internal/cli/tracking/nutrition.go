package tracking

import (
	"fmt"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/stats"
)

type GoalsCmd struct {
	Show GoalsShowCmd `cmd:"" help:"Show nutrition goals." default:"1"`
	Set  GoalsSetCmd  `cmd:"" help:"Update nutrition goals. Only the given fields change."`
}

type GoalsShowCmd struct{}

func (c *GoalsShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	fmt.Println(goalsRows(ctx.Health.Goals()))
	return nil
}

func goalsRows(g models.NutritionGoals) string {
	return cli.Rows([][2]string{
		{"Calories", fmt.Sprintf("%d kcal", g.DailyCalories)},
		{"Protein", fmt.Sprintf("%.0f g", g.Protein)},
		{"Carbs", fmt.Sprintf("%.0f g", g.Carbs)},
		{"Fat", fmt.Sprintf("%.0f g", g.Fat)},
		{"Water", fmt.Sprintf("%d ml", g.Water)},
	})
}

type GoalsSetCmd struct {
	Calories *int     `help:"Daily calories."`
	Protein  *float64 `help:"Protein in grams."`
	Carbs    *float64 `help:"Carbohydrates in grams."`
	Fat      *float64 `help:"Fat in grams."`
	Water    *int     `help:"Water in ml."`
}

func (c *GoalsSetCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	g, err := ctx.Health.UpdateNutritionGoals(models.GoalsUpdate{
		DailyCalories: c.Calories,
		Protein:       c.Protein,
		Carbs:         c.Carbs,
		Fat:           c.Fat,
		Water:         c.Water,
	})
	if err != nil {
		return err
	}
	fmt.Println(cli.Success("Goals updated"))
	fmt.Println(goalsRows(g))
	return nil
}

type NutritionCmd struct{}

func (c *NutritionCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	fmt.Println(nutritionPanel(ctx))
	return nil
}

func nutritionPanel(ctx *cli.Context) string {
	totals := ctx.Health.TodayTotals()
	goals := ctx.Health.Goals()
	water := ctx.Health.Metrics().Water
	p := stats.NutritionProgress(totals, water, goals)

	const width = 24
	return cli.Rows([][2]string{
		{"Calories", fmt.Sprintf("%s  %d / %d kcal", cli.ProgressBar(p.Calories, width), totals.Calories, goals.DailyCalories)},
		{"Protein", fmt.Sprintf("%s  %.0f / %.0f g", cli.ProgressBar(p.Protein, width), totals.Protein, goals.Protein)},
		{"Carbs", fmt.Sprintf("%s  %.0f / %.0f g", cli.ProgressBar(p.Carbs, width), totals.Carbs, goals.Carbs)},
		{"Fat", fmt.Sprintf("%s  %.0f / %.0f g", cli.ProgressBar(p.Fat, width), totals.Fat, goals.Fat)},
		{"Water", fmt.Sprintf("%s  %d / %d ml", cli.ProgressBar(p.Water, width), water, goals.Water)},
	})
}
