package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func validForm() TransactionForm {
	return TransactionForm{
		Title:    "Coffee",
		Amount:   "150",
		Type:     "expense",
		Category: "Food",
		Date:     "2024-03-02",
	}
}

func TestValidateAcceptsValidForm(t *testing.T) {
	res := Validate(validForm())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateFieldMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TransactionForm)
		field  string
		want   string
	}{
		{"empty title", func(f *TransactionForm) { f.Title = "" }, "title", "Title is required"},
		{"blank title", func(f *TransactionForm) { f.Title = "   " }, "title", "Title is required"},
		{"zero amount", func(f *TransactionForm) { f.Amount = "0" }, "amount", "Amount must be greater than 0"},
		{"negative amount", func(f *TransactionForm) { f.Amount = "-5" }, "amount", "Amount must be greater than 0"},
		{"empty amount", func(f *TransactionForm) { f.Amount = "" }, "amount", "Amount must be greater than 0"},
		{"text amount", func(f *TransactionForm) { f.Amount = "abc" }, "amount", "Amount must be greater than 0"},
		{"empty type", func(f *TransactionForm) { f.Type = "" }, "type", "Type must be income or expense"},
		{"unknown type", func(f *TransactionForm) { f.Type = "transfer" }, "type", "Type must be income or expense"},
		{"empty category", func(f *TransactionForm) { f.Category = "" }, "category", "Category is required"},
		{"unknown category", func(f *TransactionForm) { f.Category = "Pets" }, "category", "Category must be one of the predefined categories"},
		{"empty date", func(f *TransactionForm) { f.Date = "" }, "date", "Date is required"},
		{"malformed date", func(f *TransactionForm) { f.Date = "02/03/2024" }, "date", "Date must be in YYYY-MM-DD format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			res := Validate(f)
			assert.False(t, res.Valid)
			assert.Len(t, res.Errors, 1)
			assert.Equal(t, tt.want, res.Errors[tt.field])
		})
	}
}

func TestValidateCollectsEveryField(t *testing.T) {
	res := Validate(TransactionForm{})
	assert.False(t, res.Valid)
	assert.Equal(t, map[string]string{
		"title":    "Title is required",
		"amount":   "Amount must be greater than 0",
		"type":     "Type must be income or expense",
		"category": "Category is required",
		"date":     "Date is required",
	}, res.Errors)
}

func TestDraft(t *testing.T) {
	f := validForm()
	f.Title = "  Coffee  "
	f.Amount = "12,50"

	d, err := f.Draft()
	require.NoError(t, err)
	assert.Equal(t, "Coffee", d.Title)
	assert.True(t, d.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, core.Expense, d.Type)
	assert.Equal(t, core.CategoryFood, d.Category)
	assert.Equal(t, "2024-03-02", d.Date)

	f.Amount = "0"
	_, err = f.Draft()
	assert.ErrorIs(t, err, ErrInvalidForm)
}
