package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, kv storage.KV, persistEmpty bool) *Store {
	t.Helper()
	n := 0
	return New(kv, Options{
		Logger:       log.Discard(),
		Now:          func() time.Time { return fixedNow },
		NewID:        func() string { n++; return fmt.Sprintf("id-%d", n) },
		PersistEmpty: persistEmpty,
	})
}

func draft(title string, amount int64, typ core.TransactionType, date string) core.Draft {
	return core.Draft{
		Title:    title,
		Amount:   decimal.NewFromInt(amount),
		Type:     typ,
		Category: core.CategoryFood,
		Date:     date,
	}
}

type failingKV struct {
	storage.KV
	getErr error
	setErr error
	sets   int
}

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.KV.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	return f.KV.Set(ctx, key, value)
}

func persisted(t *testing.T, kv storage.KV) []core.Transaction {
	t.Helper()
	raw, ok, err := kv.Get(context.Background(), storage.TransactionsKey)
	require.NoError(t, err)
	require.True(t, ok, "transactions key should be persisted")
	var txs []core.Transaction
	require.NoError(t, json.Unmarshal([]byte(raw), &txs))
	return txs
}

func TestNewDefaultsFilterToCurrentMonth(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV(), false)
	assert.Equal(t, core.Filter{Month: "2024-03", Type: core.FilterAll}, s.Filter())
	assert.Empty(t, s.Transactions())
}

func TestAddPrependsAndComputesMonthKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV(), false)

	first := s.Add(ctx, draft("Salary", 50000, core.Income, "2024-02-28"))
	second := s.Add(ctx, draft("Coffee", 150, core.Expense, ""))

	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "2024-02", first.MonthKey)
	assert.Equal(t, "2024-03-15", second.Date, "empty date defaults to today")
	assert.Equal(t, "2024-03", second.MonthKey)

	txs := s.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID)
	assert.Equal(t, first.ID, txs[1].ID)
}

func TestAddUsesUUIDByDefault(t *testing.T) {
	s := New(storage.NewMemoryKV(), Options{Logger: log.Discard()})
	a := s.Add(context.Background(), draft("A", 1, core.Expense, "2024-01-01"))
	b := s.Add(context.Background(), draft("B", 1, core.Expense, "2024-01-01"))
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV(), false)
	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))
	b := s.Add(ctx, draft("Rent", 20000, core.Expense, "2024-03-01"))

	title := "Espresso"
	date := "2024-04-01"
	got, err := s.Update(ctx, a.ID, core.Patch{Title: &title, Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "Espresso", got.Title)
	assert.Equal(t, "2024-04", got.MonthKey)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))

	txs := s.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, b.ID, txs[0].ID, "update keeps position")
	assert.Equal(t, got, txs[1])
}

func TestUpdateUnknownID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV(), false)
	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))

	title := "Nope"
	_, err := s.Update(ctx, "missing", core.Patch{Title: &title})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, []core.Transaction{a}, s.Transactions())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv, false)
	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))
	b := s.Add(ctx, draft("Tea", 80, core.Expense, "2024-03-03"))

	s.Delete(ctx, "missing")
	assert.Len(t, s.Transactions(), 2)

	s.Delete(ctx, a.ID)
	assert.Equal(t, []core.Transaction{b}, s.Transactions())
	stored := persisted(t, kv)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
}

func TestRoundTripThroughStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := newTestStore(t, kv, false)
	s.Add(ctx, draft("Salary", 50000, core.Income, "2024-03-01"))
	s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))
	want := s.Transactions()

	reloaded := newTestStore(t, kv, false)
	reloaded.Load(ctx)
	got := reloaded.Transactions()

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.True(t, want[i].Amount.Equal(got[i].Amount))
		assert.Equal(t, want[i].MonthKey, got[i].MonthKey)
	}
}

func TestDeletingLastTransactionSkipsPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv, false)
	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))

	s.Delete(ctx, a.ID)
	assert.Empty(t, s.Transactions())
	assert.Len(t, persisted(t, kv), 1, "empty collection is not written")

	reloaded := newTestStore(t, kv, false)
	reloaded.Load(ctx)
	assert.Len(t, reloaded.Transactions(), 1)
}

func TestPersistEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv, true)
	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))

	s.Delete(ctx, a.ID)
	raw, ok, err := kv.Get(ctx, storage.TransactionsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestLoadBackfillsMonthKey(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.TransactionsKey,
		`[{"id":"a","title":"Old","amount":250,"type":"expense","category":"Food","date":"2023-11-20"}]`))

	s := newTestStore(t, kv, false)
	s.Load(ctx)

	txs := s.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "2023-11", txs[0].MonthKey)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "2023-11", persisted(t, kv)[0].MonthKey, "backfill is written back")
}

func TestLoadCorruptData(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.TransactionsKey, `{not json`))

	s := newTestStore(t, kv, false)
	s.Load(ctx)
	assert.Empty(t, s.Transactions())

	raw, _, _ := kv.Get(ctx, storage.TransactionsKey)
	assert.Equal(t, `{not json`, raw, "corrupt data is left in place")
}

func TestLoadReadError(t *testing.T) {
	kv := &failingKV{KV: storage.NewMemoryKV(), getErr: errors.New("disk gone")}
	s := newTestStore(t, kv, false)
	s.Load(context.Background())
	assert.Empty(t, s.Transactions())
	assert.Zero(t, kv.sets)
}

func TestPersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV(), setErr: errors.New("quota exceeded")}
	s := newTestStore(t, kv, false)

	a := s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))
	assert.Equal(t, []core.Transaction{a}, s.Transactions())
	assert.Equal(t, 1, kv.sets)
}

func TestFilterActionsDoNotPersist(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV()}
	s := newTestStore(t, kv, true)

	month := "2024-01"
	typ := core.FilterExpense
	f := s.SetFilter(ctx, core.FilterPatch{Month: &month, Type: &typ})
	assert.Equal(t, core.Filter{Month: "2024-01", Type: core.FilterExpense}, f)

	search := "cof"
	f = s.SetFilter(ctx, core.FilterPatch{Search: &search})
	assert.Equal(t, core.Filter{Month: "2024-01", Type: core.FilterExpense, Search: "cof"}, f)

	f = s.ResetFilter(ctx)
	assert.Equal(t, core.Filter{Month: "2024-03", Type: core.FilterAll}, f)
	assert.Zero(t, kv.sets)
}

func TestFiltered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV(), false)
	s.Add(ctx, draft("Coffee", 150, core.Expense, "2024-03-02"))
	s.Add(ctx, draft("Salary", 50000, core.Income, "2024-03-01"))
	s.Add(ctx, draft("Coffee beans", 600, core.Expense, "2024-02-10"))

	assert.Len(t, s.Filtered(), 2)

	search := "COFFEE"
	s.SetFilter(ctx, core.FilterPatch{Search: &search})
	got := s.Filtered()
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].Title)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	a := core.Transaction{ID: "a", Title: "A"}
	b := core.Transaction{ID: "b", Title: "B"}
	s := State{Transactions: []core.Transaction{a, b}}

	next := Reduce(s, UpdateTransaction{Transaction: core.Transaction{ID: "a", Title: "A2"}})
	assert.Equal(t, "A", s.Transactions[0].Title)
	assert.Equal(t, "A2", next.Transactions[0].Title)

	next = Reduce(s, DeleteTransaction{ID: "a"})
	assert.Len(t, s.Transactions, 2)
	assert.Equal(t, []core.Transaction{b}, next.Transactions)

	next = Reduce(s, AddTransaction{Transaction: core.Transaction{ID: "c"}})
	assert.Len(t, s.Transactions, 2)
	assert.Equal(t, "c", next.Transactions[0].ID)
}

func TestLoadThroughReadOnlyKVLeavesStorageUntouched(t *testing.T) {
	ctx := context.Background()
	backing := &failingKV{KV: storage.NewMemoryKV()}
	persisted := `[{"id":"a","title":"Rent","amount":"900","type":"expense","category":"Rent","date":"2024-02-01"}]`
	require.NoError(t, backing.KV.Set(ctx, storage.TransactionsKey, persisted))

	s := newTestStore(t, storage.ReadOnly(backing), false)
	s.Load(ctx)

	require.Len(t, s.Transactions(), 1)
	assert.Equal(t, "2024-02", s.Transactions()[0].MonthKey)
	assert.Zero(t, backing.sets, "loading must not write the collection back")

	raw, _, err := backing.Get(ctx, storage.TransactionsKey)
	require.NoError(t, err)
	assert.Equal(t, persisted, raw)
}
