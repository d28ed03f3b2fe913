package tracking

import (
	"fmt"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/models"
	"github.com/julianstephens/healthchain/internal/utils"
)

type MealCmd struct {
	Add    MealAddCmd    `cmd:"" help:"Log a meal."`
	List   MealListCmd   `cmd:"" help:"List logged meals." default:"1"`
	Delete MealDeleteCmd `cmd:"" help:"Delete a meal and reverse its calories."`
}

type MealAddCmd struct {
	Name     string  `arg:"" help:"What you ate."`
	Type     string  `short:"t" required:"" help:"One of breakfast, lunch, dinner, snack."`
	Calories int     `short:"c" help:"Calories."`
	Protein  float64 `help:"Protein in grams."`
	Carbs    float64 `help:"Carbohydrates in grams."`
	Fat      float64 `help:"Fat in grams."`
	At       string  `help:"Time eaten as HH:MM or 'YYYY-MM-DD HH:MM'. Defaults to now."`
}

func (c *MealAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	at, err := utils.ParseWhen(c.At, ctx.Now())
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}

	m, err := ctx.Health.AddMeal(models.Meal{
		Name:      c.Name,
		MealType:  models.MealType(c.Type),
		Calories:  c.Calories,
		Protein:   c.Protein,
		Carbs:     c.Carbs,
		Fat:       c.Fat,
		Timestamp: at,
	})
	if err != nil {
		return err
	}
	fmt.Println(cli.Success(fmt.Sprintf("Logged %s: %s (%d kcal)", m.MealType, m.Name, m.Calories)))
	fmt.Printf("  ID: %s\n", m.ID)
	return nil
}

type MealListCmd struct{}

func (c *MealListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	meals := ctx.Health.Meals()
	if len(meals) == 0 {
		fmt.Println("No meals logged.")
		return nil
	}
	for _, m := range meals {
		fmt.Printf("%s  %-9s %-24s %5d kcal  P %5.1fg  C %5.1fg  F %5.1fg  %s\n",
			m.Timestamp.Format("2006-01-02 15:04"), m.MealType, m.Name, m.Calories, m.Protein, m.Carbs, m.Fat, m.ID)
	}
	fmt.Printf("\nTotal: %s\n", ctx.Health.Totals())
	return nil
}

type MealDeleteCmd struct {
	ID string `arg:"" help:"ID of the meal."`
}

func (c *MealDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Health.DeleteMeal(c.ID); err != nil {
		return err
	}
	fmt.Println(cli.Success("Deleted meal " + c.ID))
	return nil
}
