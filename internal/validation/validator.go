// Package validation is the gate every transaction form passes before it
// reaches the store.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spendwise/internal/core"
)

// TransactionForm holds raw user input.
type TransactionForm struct {
	Title    string `json:"title" validate:"notblank"`
	Amount   string `json:"amount" validate:"positive_amount"`
	Type     string `json:"type" validate:"required,oneof=income expense"`
	Category string `json:"category" validate:"notblank,category"`
	Date     string `json:"date" validate:"notblank,datetime=2006-01-02"`
}

// Result is the outcome of Validate. Errors maps form field names to a
// single human-readable message.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

var ErrInvalidForm = errors.New("invalid transaction form")

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

var defaultValidator = New()

// New creates a validator with the custom rules registered.
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("positive_amount", validatePositiveAmount)
	_ = v.RegisterValidation("category", validateCategory)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate checks f with the package validator.
func Validate(f TransactionForm) Result {
	return defaultValidator.Validate(f)
}

// Validate checks every field of f and collects one message per failing field.
func (v *Validator) Validate(f TransactionForm) Result {
	res := Result{Valid: true, Errors: map[string]string{}}

	err := v.validate.Struct(f)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Valid = false
		res.Errors["form"] = err.Error()
		return res
	}

	res.Valid = false
	for _, fe := range verrs {
		if _, seen := res.Errors[fe.Field()]; seen {
			continue
		}
		res.Errors[fe.Field()] = message(fe)
	}
	return res
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return "Title is required"
	case "amount":
		return "Amount must be greater than 0"
	case "type":
		return "Type must be income or expense"
	case "category":
		if fe.Tag() == "category" {
			return "Category must be one of the predefined categories"
		}
		return "Category is required"
	case "date":
		if fe.Tag() == "datetime" {
			return "Date must be in YYYY-MM-DD format"
		}
		return "Date is required"
	default:
		return fe.Field() + " is invalid"
	}
}

// Draft converts a form that passed Validate into a store draft.
func (f TransactionForm) Draft() (core.Draft, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Draft{}, ErrInvalidForm
	}
	return core.Draft{
		Title:    strings.TrimSpace(f.Title),
		Amount:   amount,
		Type:     core.TransactionType(f.Type),
		Category: core.Category(strings.TrimSpace(f.Category)),
		Date:     strings.TrimSpace(f.Date),
	}, nil
}

// validateNotBlank rejects empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validatePositiveAmount accepts decimal strings greater than 0.
func validatePositiveAmount(fl validator.FieldLevel) bool {
	_, err := core.ParseAmount(fl.Field().String())
	return err == nil
}

func validateCategory(fl validator.FieldLevel) bool {
	return core.Category(strings.TrimSpace(fl.Field().String())).IsKnown()
}
