package store

import "spendwise/internal/core"

// ActionKind names a state transition.
type ActionKind string

const (
	KindSetTransactions   ActionKind = "set_transactions"
	KindAddTransaction    ActionKind = "add_transaction"
	KindUpdateTransaction ActionKind = "update_transaction"
	KindDeleteTransaction ActionKind = "delete_transaction"
	KindSetFilter         ActionKind = "set_filter"
	KindResetFilters      ActionKind = "reset_filters"
)

// State is everything the store holds. Transactions are most-recent-first by
// insertion.
type State struct {
	Transactions []core.Transaction
	Filter       core.Filter
}

// Action is one of the tagged variants below.
type Action interface {
	Kind() ActionKind
}

type (
	SetTransactions struct {
		Transactions []core.Transaction
	}

	AddTransaction struct {
		Transaction core.Transaction
	}

	// UpdateTransaction replaces the entry whose ID matches in place.
	UpdateTransaction struct {
		Transaction core.Transaction
	}

	DeleteTransaction struct {
		ID string
	}

	SetFilter struct {
		Patch core.FilterPatch
	}

	// ResetFilters restores Defaults.
	ResetFilters struct {
		Defaults core.Filter
	}
)

func (SetTransactions) Kind() ActionKind   { return KindSetTransactions }
func (AddTransaction) Kind() ActionKind    { return KindAddTransaction }
func (UpdateTransaction) Kind() ActionKind { return KindUpdateTransaction }
func (DeleteTransaction) Kind() ActionKind { return KindDeleteTransaction }
func (SetFilter) Kind() ActionKind         { return KindSetFilter }
func (ResetFilters) Kind() ActionKind      { return KindResetFilters }

// Reduce is the single state transition function. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetTransactions:
		s.Transactions = append([]core.Transaction(nil), a.Transactions...)

	case AddTransaction:
		next := make([]core.Transaction, 0, len(s.Transactions)+1)
		next = append(next, a.Transaction)
		s.Transactions = append(next, s.Transactions...)

	case UpdateTransaction:
		next := make([]core.Transaction, len(s.Transactions))
		for i, t := range s.Transactions {
			if t.ID == a.Transaction.ID {
				t = a.Transaction
			}
			next[i] = t
		}
		s.Transactions = next

	case DeleteTransaction:
		next := make([]core.Transaction, 0, len(s.Transactions))
		for _, t := range s.Transactions {
			if t.ID != a.ID {
				next = append(next, t)
			}
		}
		s.Transactions = next

	case SetFilter:
		s.Filter = s.Filter.Merge(a.Patch)

	case ResetFilters:
		s.Filter = a.Defaults
	}
	return s
}

// changesTransactions reports whether a can alter the collection.
func changesTransactions(a Action) bool {
	switch a.Kind() {
	case KindSetTransactions, KindAddTransaction, KindUpdateTransaction, KindDeleteTransaction:
		return true
	default:
		return false
	}
}
