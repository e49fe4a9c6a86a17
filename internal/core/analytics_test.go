package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tx(id string, typ TransactionType, cat Category, amount int64, date string) Transaction {
	return Transaction{
		ID:       id,
		Title:    id,
		Amount:   decimal.NewFromInt(amount),
		Type:     typ,
		Category: cat,
		Date:     date,
		MonthKey: MonthKey(date),
	}
}

func TestFilterTransactionsByMonth(t *testing.T) {
	txs := []Transaction{
		tx("a", Expense, CategoryFood, 10, "2024-03-01"),
		tx("b", Income, CategorySalary, 10, "2024-04-01"),
		tx("c", Income, CategorySalary, 10, "2024-03-20"),
		tx("d", Expense, CategoryRent, 10, "2024-02-28"),
	}
	got := FilterTransactions(txs, Filter{Month: "2024-03", Type: FilterAll})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected filter result: %+v", got)
	}

	reversed := []Transaction{txs[3], txs[2], txs[1], txs[0]}
	got = FilterTransactions(reversed, Filter{Month: "2024-03", Type: FilterAll})
	if len(got) != 2 {
		t.Fatalf("order must not affect membership, got %d", len(got))
	}
}

func TestComputeTotals(t *testing.T) {
	got := ComputeTotals([]Transaction{tx("coffee", Expense, CategoryFood, 150, "2024-05-02")})
	if !got.Income.IsZero() || !got.Expense.Equal(decimal.NewFromInt(150)) || !got.Balance.Equal(decimal.NewFromInt(-150)) {
		t.Fatalf("unexpected totals: %+v", got)
	}

	got = ComputeTotals([]Transaction{
		tx("salary", Income, CategorySalary, 1000, "2024-05-01"),
		tx("rent", Expense, CategoryRent, 400, "2024-05-01"),
	})
	if !got.Balance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected balance: %s", got.Balance)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []Transaction{
		tx("a", Expense, CategoryFood, 100, "2024-05-01"),
		tx("b", Expense, CategoryRent, 200, "2024-05-01"),
		tx("c", Expense, "", 50, "2024-05-01"),
		tx("d", Income, CategorySalary, 5000, "2024-05-01"),
		tx("e", Expense, CategoryFood, 100, "2024-05-02"),
	}
	got := CategoryBreakdown(txs)
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %+v", got)
	}
	if got[0].Category != CategoryFood && got[0].Category != CategoryRent {
		t.Fatalf("unexpected first group %s", got[0].Category)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Amount.LessThan(got[i].Amount) {
			t.Fatalf("groups not sorted descending: %+v", got)
		}
	}
	if got[2].Category != CategoryOthers {
		t.Fatalf("empty category must fold into Others, got %s", got[2].Category)
	}

	sum := decimal.Zero
	for _, g := range got {
		sum = sum.Add(g.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(decimal.NewFromFloat(0.2)) {
		t.Fatalf("percentages should sum to ~100, got %s", sum)
	}
}

func TestCategoryBreakdownNoExpenses(t *testing.T) {
	got := CategoryBreakdown([]Transaction{tx("a", Income, CategorySalary, 10, "2024-05-01")})
	if len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", got)
	}
}

func TestMonthlyTrend(t *testing.T) {
	var txs []Transaction
	for m := 1; m <= 9; m++ {
		date := time.Date(2024, time.Month(m), 10, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		txs = append(txs, tx(date, Expense, CategoryFood, int64(m), date))
	}
	txs = append(txs, tx("inc", Income, CategorySalary, 500, "2024-09-01"))

	got := MonthlyTrend(txs)
	if len(got) != 6 {
		t.Fatalf("expected 6 months, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].MonthKey >= got[i].MonthKey {
			t.Fatalf("months not ascending: %+v", got)
		}
	}
	if got[0].MonthKey != "2024-04" || got[0].Label != "Apr" {
		t.Fatalf("unexpected first month: %+v", got[0])
	}
	last := got[5]
	if last.Label != "Sep" || !last.Income.Equal(decimal.NewFromInt(500)) || !last.Expense.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("unexpected last month: %+v", last)
	}
}

func TestDailyTrendLeapFebruary(t *testing.T) {
	txs := []Transaction{
		tx("a", Expense, CategoryFood, 30, "2024-02-29"),
		tx("b", Expense, CategoryFood, 20, "2024-02-29"),
		tx("c", Income, CategorySalary, 99, "2024-02-10"),
		tx("d", Expense, CategoryFood, 7, "2024-03-01"),
	}
	got, err := DailyTrend(txs, "2024-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 29 {
		t.Fatalf("expected 29 days, got %d", len(got))
	}
	if !got[28].Amount.Equal(decimal.NewFromInt(50)) || got[28].Day != 29 {
		t.Fatalf("unexpected day 29: %+v", got[28])
	}
	if !got[9].Amount.IsZero() {
		t.Fatalf("income must not count, got %s", got[9].Amount)
	}
}

func TestDailyTrendLengths(t *testing.T) {
	cases := map[string]int{"2023-02": 28, "2024-04": 30, "2024-12": 31}
	for month, want := range cases {
		got, err := DailyTrend(nil, month)
		if err != nil || len(got) != want {
			t.Fatalf("%s: expected %d days, got %d (err=%v)", month, want, len(got), err)
		}
	}
	if _, err := DailyTrend(nil, "bogus"); err == nil {
		t.Fatalf("expected error for invalid month")
	}
}

func TestMonthOptions(t *testing.T) {
	got := MonthOptions(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), 12)
	if len(got) != 12 {
		t.Fatalf("expected 12 options, got %d", len(got))
	}
	if got[0].Value != "2024-03" || got[0].Label != "March 2024" {
		t.Fatalf("unexpected first option: %+v", got[0])
	}
	if got[1].Value != "2024-02" || got[11].Value != "2023-04" {
		t.Fatalf("unexpected sequence: %+v", got)
	}
}
