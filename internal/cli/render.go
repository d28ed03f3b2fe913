package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/constants"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func Title(s string) string   { return titleStyle.Render(s) }
func Success(s string) string { return successStyle.Render("✓ " + s) }
func Warning(s string) string { return warningStyle.Render("⚠ " + s) }
func Danger(s string) string  { return dangerStyle.Render("❌ " + s) }
func Box(s string) string     { return boxStyle.Render(s) }

// Rows renders label/value pairs with the labels padded to one width.
func Rows(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, r[0])))
		b.WriteString("  ")
		b.WriteString(r[1])
	}
	return b.String()
}

// ProgressBar renders a static bar for pct, a percentage clamped to 0-100.
func ProgressBar(pct float64, width int) string {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	pct = min(100, max(0, pct))
	return fmt.Sprintf("%s %3.0f%%", bar.ViewAs(pct/100), pct)
}

func FormatTokens(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + constants.TokenSymbol
}

func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
