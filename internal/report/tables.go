// Package report renders transaction summaries as terminal tables and PNG
// charts.
package report

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"spendwise/internal/core"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

// WriteTransactions lists txs with a footer holding the net balance.
func WriteTransactions(w io.Writer, txs []core.Transaction) {
	table := newTable(w, []string{"Date", "Title", "Category", "Type", "Amount"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, t := range txs {
		amount := core.FormatCurrency(t.Amount)
		if t.Type == core.Expense {
			amount = "-" + amount
		}
		table.Append([]string{t.Date, t.Title, string(t.Category), string(t.Type), amount})
	}

	totals := core.ComputeTotals(txs)
	table.SetFooter([]string{"", "", "", "Balance", core.FormatCurrency(totals.Balance)})
	table.Render()
}

// WriteSummary prints the totals followed by the expense breakdown.
func WriteSummary(w io.Writer, totals core.Totals, breakdown []core.CategoryStat) {
	t := newTable(w, []string{"Income", "Expense", "Balance"})
	t.Append([]string{
		core.FormatCurrency(totals.Income),
		core.FormatCurrency(totals.Expense),
		core.FormatCurrency(totals.Balance),
	})
	t.Render()

	if len(breakdown) == 0 {
		return
	}
	b := newTable(w, []string{"Category", "Amount", "Share"})
	b.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, s := range breakdown {
		b.Append([]string{string(s.Category), core.FormatCurrency(s.Amount), s.Percentage.StringFixed(1) + "%"})
	}
	b.Render()
}

// WriteMonthly prints the monthly trend, oldest month first.
func WriteMonthly(w io.Writer, trend []core.MonthTrend) {
	table := newTable(w, []string{"Month", "Income", "Expense", "Net"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, m := range trend {
		table.Append([]string{
			m.MonthKey,
			core.FormatCurrency(m.Income),
			core.FormatCurrency(m.Expense),
			core.FormatCurrency(m.Income.Sub(m.Expense)),
		})
	}
	table.Render()
}
