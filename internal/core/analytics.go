package core

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// trendMonths is how many months MonthlyTrend keeps.
const trendMonths = 6

var hundred = decimal.NewFromInt(100)

type (
	// Totals sums a set of transactions by type.
	Totals struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}

	// CategoryStat is one slice of the expense breakdown.
	CategoryStat struct {
		Category   Category        `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	// MonthTrend is one month of income and expense totals.
	MonthTrend struct {
		MonthKey string          `json:"monthKey"`
		Label    string          `json:"month"`
		Income   decimal.Decimal `json:"income"`
		Expense  decimal.Decimal `json:"expense"`
	}

	// DayAmount is the expense total of one calendar day.
	DayAmount struct {
		Day    int             `json:"day"`
		Amount decimal.Decimal `json:"amount"`
	}
)

// FilterTransactions returns the transactions matching f, keeping their order.
func FilterTransactions(txs []Transaction, f Filter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// ComputeTotals sums income and expense and derives the balance.
func ComputeTotals(txs []Transaction) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = income.Add(t.Amount)
		case Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// CategoryBreakdown groups expenses by category, largest first. Transactions
// without a category count as Others. Percentages are rounded to one decimal.
func CategoryBreakdown(txs []Transaction) []CategoryStat {
	sums := make(map[Category]decimal.Decimal)
	total := decimal.Zero
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = CategoryOthers
		}
		sums[cat] = sums[cat].Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]CategoryStat, 0, len(sums))
	for cat, amount := range sums {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = amount.Div(total).Mul(hundred).Round(1)
		}
		out = append(out, CategoryStat{Category: cat, Amount: amount, Percentage: pct})
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthlyTrend groups every transaction by month key and returns the most
// recent six months in chronological order.
func MonthlyTrend(txs []Transaction) []MonthTrend {
	byMonth := make(map[string]*MonthTrend)
	for _, t := range txs {
		key := t.MonthKey
		if key == "" {
			key = MonthKey(t.Date)
		}
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTrend{MonthKey: key, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[key] = m
		}
		if t.Type == Income {
			m.Income = m.Income.Add(t.Amount)
		} else {
			m.Expense = m.Expense.Add(t.Amount)
		}
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > trendMonths {
		keys = keys[len(keys)-trendMonths:]
	}

	out := make([]MonthTrend, 0, len(keys))
	for _, k := range keys {
		m := *byMonth[k]
		m.Label = shortMonthLabel(k)
		out = append(out, m)
	}
	return out
}

// DailyTrend returns one entry per calendar day of month with the expenses
// booked on that day. Days without expenses are zero.
func DailyTrend(txs []Transaction, month string) ([]DayAmount, error) {
	days, err := DaysInMonth(month)
	if err != nil {
		return nil, err
	}

	out := make([]DayAmount, days)
	for i := range out {
		out[i] = DayAmount{Day: i + 1, Amount: decimal.Zero}
	}

	for _, t := range txs {
		if t.Type != Expense || t.MonthKey != month || len(t.Date) < 10 {
			continue
		}
		day, err := strconv.Atoi(t.Date[8:10])
		if err != nil || day < 1 || day > days {
			continue
		}
		out[day-1].Amount = out[day-1].Amount.Add(t.Amount)
	}
	return out, nil
}
