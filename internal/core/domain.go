package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	FilterAll     FilterType = "all"
	FilterIncome  FilterType = "income"
	FilterExpense FilterType = "expense"
)

const (
	CategoryFood          Category = "Food"
	CategoryRent          Category = "Rent"
	CategoryTravel        Category = "Travel"
	CategoryShopping      Category = "Shopping"
	CategorySalary        Category = "Salary"
	CategoryInvestment    Category = "Investment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEntertainment Category = "Entertainment"
	CategoryEducation     Category = "Education"
	CategoryUtilities     Category = "Utilities"
	CategoryOthers        Category = "Others"
)

// DateLayout is the storage format of Transaction.Date.
const DateLayout = "2006-01-02"

// MonthLayout is the format of month keys and filter months.
const MonthLayout = "2006-01"

type (
	TransactionType string

	FilterType string

	Category string

	// Transaction is the only persisted entity. MonthKey always mirrors the
	// first seven characters of Date.
	Transaction struct {
		ID       string          `json:"id"`
		Title    string          `json:"title"`
		Amount   decimal.Decimal `json:"amount"`
		Type     TransactionType `json:"type"`
		Category Category        `json:"category"`
		Date     string          `json:"date"`
		MonthKey string          `json:"monthKey"`
	}

	// Draft carries the caller-supplied fields of a new transaction.
	// An empty Date means today.
	Draft struct {
		Title    string
		Amount   decimal.Decimal
		Type     TransactionType
		Category Category
		Date     string
	}

	// Patch holds the fields to overwrite on an existing transaction.
	Patch struct {
		Title    *string
		Amount   *decimal.Decimal
		Type     *TransactionType
		Category *Category
		Date     *string
	}

	// Filter is the transient month/type/search criteria.
	Filter struct {
		Month  string     `json:"month"`
		Type   FilterType `json:"type"`
		Search string     `json:"search"`
	}

	// FilterPatch is merged shallowly into a Filter; nil fields are kept.
	FilterPatch struct {
		Month  *string     `json:"month,omitempty"`
		Type   *FilterType `json:"type,omitempty"`
		Search *string     `json:"search,omitempty"`
	}
)

var ErrInvalidFilterType = errors.New("invalid filter type")

// Categories lists the fixed category set in display order.
var Categories = []Category{
	CategoryFood,
	CategoryRent,
	CategoryTravel,
	CategoryShopping,
	CategorySalary,
	CategoryInvestment,
	CategoryHealthcare,
	CategoryEntertainment,
	CategoryEducation,
	CategoryUtilities,
	CategoryOthers,
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (f FilterType) IsValid() bool {
	switch f {
	case FilterAll, FilterIncome, FilterExpense:
		return true
	default:
		return false
	}
}

// IsKnown reports whether c belongs to the fixed category set.
func (c Category) IsKnown() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MonthKey returns the YYYY-MM prefix of a YYYY-MM-DD date. Shorter inputs
// are returned unchanged.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// WithMonthKey returns t with MonthKey recomputed from Date.
func (t Transaction) WithMonthKey() Transaction {
	t.MonthKey = MonthKey(t.Date)
	return t
}

// Apply merges p onto t. MonthKey is recomputed only when the patch changes
// the date.
func (t Transaction) Apply(p Patch) Transaction {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
		t.MonthKey = MonthKey(t.Date)
	}
	return t
}

// Merge applies a FilterPatch onto f.
func (f Filter) Merge(p FilterPatch) Filter {
	if p.Month != nil {
		f.Month = *p.Month
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	return f
}

// Validate checks that a FilterPatch only carries values a Filter can hold.
func (p FilterPatch) Validate() error {
	if p.Type != nil && !p.Type.IsValid() {
		return ErrInvalidFilterType
	}
	if p.Month != nil {
		if _, err := ParseMonth(*p.Month); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t Transaction) bool {
	if t.MonthKey != f.Month {
		return false
	}
	if f.Type != FilterAll && f.Type != "" && string(t.Type) != string(f.Type) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
