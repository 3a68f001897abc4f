// Package report renders holdings as a terminal table.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"kitefolio/internal/models"
	"kitefolio/internal/services"
)

// EmptyMessage is printed when the account holds nothing.
const EmptyMessage = "You have no holdings in your portfolio."

var headers = []string{"Symbol", "Qty", "Avg. Price", "Last Price", "P&L", "Day Change", "Day Change %"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	gainStyle   = numberStyle.Foreground(lipgloss.Color("2"))
	lossStyle   = numberStyle.Foreground(lipgloss.Color("1"))
)

// Write prints the snapshot and its totals to w.
func Write(w io.Writer, snap *models.Snapshot) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	rows := make([][]string, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		rows = append(rows, []string{
			h.Symbol,
			strconv.FormatInt(h.Quantity, 10),
			fixed(h.AveragePrice),
			fixed(h.LastPrice),
			fixed(h.PnL),
			fixed(h.DayChange),
			fixed(h.DayChangePercentage),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case col == 4 || col == 6:
				return signStyle(rows[row][col])
			default:
				return numberStyle
			}
		})

	s := snap.Summary()
	if _, err := fmt.Fprintln(w, titleStyle.Render("Your Portfolio Holdings")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Invested %s  Current %s  P&L %s (%s)\n",
		services.FormatINR(s.TotalInvested),
		services.FormatINR(s.TotalCurrent),
		services.FormatINR(s.PnL),
		services.FormatSignedPct(s.PnLPercent),
	)
	return err
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func signStyle(v string) lipgloss.Style {
	d, err := decimal.NewFromString(v)
	switch {
	case err != nil:
		return numberStyle
	case d.IsNegative():
		return lossStyle
	case d.IsPositive():
		return gainStyle
	default:
		return numberStyle
	}
}
