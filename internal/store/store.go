// Package store holds the transaction collection and the filter state behind
// a single reducer, persisting the collection to a key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/storage"
)

var ErrNotFound = errors.New("transaction not found")

type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Now defaults to time.Now; the store always works in UTC.
	Now func() time.Time
	// NewID defaults to uuid.NewString.
	NewID func() string
	// PersistEmpty writes an empty collection instead of skipping it.
	PersistEmpty bool
}

type Store struct {
	mu       sync.Mutex
	state    State
	defaults core.Filter

	kv           storage.KV
	logger       *log.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	newID        func() string
	persistEmpty bool
}

// New returns an empty store whose filter defaults to the current month.
func New(kv storage.KV, opts Options) *Store {
	s := &Store{
		kv:           kv,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
		newID:        opts.NewID,
		persistEmpty: opts.PersistEmpty,
	}
	if s.logger == nil {
		s.logger = log.Default(log.ComponentStore)
	} else {
		s.logger = s.logger.WithComponent(log.ComponentStore)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	s.defaults = core.Filter{
		Month:  core.CurrentMonth(s.now()),
		Type:   core.FilterAll,
		Search: "",
	}
	s.state = State{Filter: s.defaults}
	return s
}

// Load reads the persisted collection and replaces the in-memory one with it.
// Read and parse failures are logged and leave the collection untouched.
func (s *Store) Load(ctx context.Context) {
	raw, ok, err := s.kv.Get(ctx, storage.TransactionsKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read transactions",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return
	}
	if !ok {
		s.logger.DebugContext(ctx, "No persisted transactions", log.FieldOperation, log.OpLoad)
		return
	}

	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse persisted transactions",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return
	}

	for i, t := range txs {
		if t.MonthKey == "" {
			txs[i] = t.WithMonthKey()
		}
	}

	s.dispatch(ctx, SetTransactions{Transactions: txs})
	s.logger.InfoContext(ctx, "Transactions loaded",
		log.FieldOperation, log.OpLoad, log.FieldCount, len(txs))
}

// Add creates a transaction from d with a fresh id and prepends it.
func (s *Store) Add(ctx context.Context, d core.Draft) core.Transaction {
	date := d.Date
	if date == "" {
		date = core.Today(s.now())
	}
	t := core.Transaction{
		ID:       s.newID(),
		Title:    d.Title,
		Amount:   d.Amount,
		Type:     d.Type,
		Category: d.Category,
		Date:     date,
	}.WithMonthKey()

	s.dispatch(ctx, AddTransaction{Transaction: t})
	s.logger.InfoContext(ctx, "Transaction added",
		log.FieldOperation, log.OpCreate,
		log.FieldTransactionID, t.ID,
		log.FieldType, string(t.Type),
		log.FieldMonth, t.MonthKey)
	return t
}

// Update merges p into the transaction with the given id.
func (s *Store) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		updated core.Transaction
		found   bool
	)
	for _, t := range s.state.Transactions {
		if t.ID == id {
			updated, found = t.Apply(p), true
			break
		}
	}
	if !found {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	s.apply(ctx, UpdateTransaction{Transaction: updated})
	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate, log.FieldTransactionID, id)
	return updated, nil
}

// Delete removes the transaction with the given id, if present.
func (s *Store) Delete(ctx context.Context, id string) {
	s.dispatch(ctx, DeleteTransaction{ID: id})
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, id)
}

func (s *Store) SetFilter(ctx context.Context, p core.FilterPatch) core.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ctx, SetFilter{Patch: p})
	return s.state.Filter
}

// ResetFilter restores the filter captured when the store was built.
func (s *Store) ResetFilter(ctx context.Context) core.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ctx, ResetFilters{Defaults: s.defaults})
	return s.state.Filter
}

// Transactions returns a copy of the full collection, never nil.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.state.Transactions))
	copy(out, s.state.Transactions)
	return out
}

func (s *Store) Filter() core.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filter
}

// Filtered returns the transactions matching the current filter.
func (s *Store) Filtered() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.FilterTransactions(s.state.Transactions, s.state.Filter)
}

func (s *Store) dispatch(ctx context.Context, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ctx, a)
}

// apply must be called with mu held.
func (s *Store) apply(ctx context.Context, a Action) {
	s.state = Reduce(s.state, a)
	s.metrics.RecordMutation(string(a.Kind()), len(s.state.Transactions))

	if changesTransactions(a) {
		s.persist(ctx)
	}
}

func (s *Store) persist(ctx context.Context) {
	txs := s.state.Transactions
	if len(txs) == 0 && !s.persistEmpty {
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}

	data, err := json.Marshal(txs)
	if err != nil {
		s.metrics.RecordPersistFailure()
		s.logger.ErrorContext(ctx, "Failed to encode transactions",
			log.FieldOperation, log.OpPersist, log.FieldError, err)
		return
	}
	if err := s.kv.Set(ctx, storage.TransactionsKey, string(data)); err != nil {
		s.metrics.RecordPersistFailure()
		s.logger.ErrorContext(ctx, "Failed to persist transactions",
			log.FieldOperation, log.OpPersist, log.FieldError, err)
		return
	}
	s.logger.DebugContext(ctx, "Transactions persisted",
		log.FieldOperation, log.OpPersist, log.FieldCount, len(txs))
}
