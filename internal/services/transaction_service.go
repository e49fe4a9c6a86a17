package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/store"
	"spendwise/internal/validation"
)

var ErrValidation = errors.New("validation failed")

// ValidationError carries the per-field messages of a rejected form.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Result.Errors))
	for f := range e.Result.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransactionService gates writes through validation before they reach the
// store.
type TransactionService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *log.Logger
}

func NewTransactionService(s *store.Store, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Default(log.ComponentStore)
	}
	return &TransactionService{
		store:     s,
		validator: validation.New(),
		logger:    logger,
	}
}

func (s *TransactionService) validate(ctx context.Context, f validation.TransactionForm) (core.Draft, error) {
	res := s.validator.Validate(f)
	if !res.Valid {
		s.logger.InfoContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpValidate, log.FieldCount, len(res.Errors))
		return core.Draft{}, &ValidationError{Result: res}
	}
	d, err := f.Draft()
	if err != nil {
		return core.Draft{}, fmt.Errorf("convert form: %w", err)
	}
	return d, nil
}

// Create validates f and adds it to the store.
func (s *TransactionService) Create(ctx context.Context, f validation.TransactionForm) (core.Transaction, error) {
	d, err := s.validate(ctx, f)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.store.Add(ctx, d), nil
}

// Update validates f and overwrites every field of transaction id with it.
func (s *TransactionService) Update(ctx context.Context, id string, f validation.TransactionForm) (core.Transaction, error) {
	d, err := s.validate(ctx, f)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.store.Update(ctx, id, core.Patch{
		Title:    &d.Title,
		Amount:   &d.Amount,
		Type:     &d.Type,
		Category: &d.Category,
		Date:     &d.Date,
	})
}

func (s *TransactionService) Delete(ctx context.Context, id string) {
	s.store.Delete(ctx, id)
}
