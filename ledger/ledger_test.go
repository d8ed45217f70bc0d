package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posterminal/catalog"
	"posterminal/models"
	"posterminal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// flakyStore fails writes to one collection while failSet is on.
type flakyStore struct {
	*store.Memory
	mu      sync.Mutex
	failSet map[store.Name]bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: store.NewMemory(), failSet: make(map[store.Name]bool)}
}

func (f *flakyStore) breakWrites(name store.Name, broken bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet[name] = broken
}

func (f *flakyStore) Set(ctx context.Context, name store.Name, data []byte) error {
	f.mu.Lock()
	broken := f.failSet[name]
	f.mu.Unlock()
	if broken {
		return store.Unavailable("set", name, errors.New("write timeout"))
	}
	return f.Memory.Set(ctx, name, data)
}

type fixture struct {
	ctx     context.Context
	backend *flakyStore
	catalog *catalog.Manager
	ledger  *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newFlakyStore()
	items := catalog.NewManager(backend, zerolog.Nop())
	return &fixture{
		ctx:     context.Background(),
		backend: backend,
		catalog: items,
		ledger:  New(backend, items, zerolog.Nop()),
	}
}

func (f *fixture) item(t *testing.T, name, price string) models.Item {
	t.Helper()
	p := d(price)
	item, err := f.catalog.Create(f.ctx, models.NewItem{Name: name, Price: &p})
	require.NoError(t, err)
	return item
}

func (f *fixture) submit(t *testing.T, cart ...models.CartEntry) models.Order {
	t.Helper()
	order, err := f.ledger.Submit(f.ctx, cart, "evatablet")
	require.NoError(t, err)
	return order
}

func catalogEntry(id int64, qty int) models.CartEntry {
	return models.CartEntry{Source: models.CatalogLine{ItemID: id}, Quantity: qty}
}

func TestEndToEnd_AdjustAndComplete(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")

	order := f.submit(t, catalogEntry(coffee.ID, 2))
	assert.Equal(t, "7.00", order.Total.StringFixed(2))
	assert.Nil(t, order.OriginalTotal)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "evatablet", order.CreatedBy)

	adjusted, err := f.ledger.AdjustTotal(f.ctx, order.ID, d("5.00"))
	require.NoError(t, err)
	assert.Equal(t, "5.00", adjusted.Total.StringFixed(2))
	assert.Equal(t, "7.00", adjusted.OriginalTotal.StringFixed(2))

	completed, err := f.ledger.Complete(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	pending, err := f.ledger.Pending(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	history, err := f.ledger.History(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)
	assert.Equal(t, "5.00", history[0].Total.StringFixed(2))
	assert.Equal(t, "7.00", history[0].OriginalTotal.StringFixed(2))
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")

	tests := []struct {
		name string
		cart []models.CartEntry
		want error
	}{
		{"empty cart", nil, models.ErrInvalidArgument},
		{"zero quantity", []models.CartEntry{catalogEntry(coffee.ID, 0)}, models.ErrInvalidArgument},
		{"unknown item", []models.CartEntry{catalogEntry(404, 1)}, models.ErrNotFound},
		{"no source", []models.CartEntry{{Quantity: 1}}, models.ErrInvalidArgument},
		{"ad hoc without name", []models.CartEntry{{Source: models.AdHocLine{Price: d("1")}, Quantity: 1}}, models.ErrInvalidArgument},
		{"ad hoc negative price", []models.CartEntry{{Source: models.AdHocLine{Name: "Tip", Price: d("-1")}, Quantity: 1}}, models.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Submit(f.ctx, tt.cart, "dev")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	pending, err := f.ledger.Pending(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_RejectsDeletedItem(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	require.NoError(t, f.catalog.SoftDelete(f.ctx, coffee.ID))

	_, err := f.ledger.Submit(f.ctx, []models.CartEntry{catalogEntry(coffee.ID, 1)}, "dev")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmit_MixedLinesAndSnapshot(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")

	order := f.submit(t,
		catalogEntry(coffee.ID, 1),
		models.CartEntry{Source: models.AdHocLine{Name: "Custom Item", Price: d("2.25")}, Quantity: 2, Note: "sin azúcar"},
	)
	assert.Equal(t, "8.00", order.Total.StringFixed(2))
	require.Len(t, order.Lines, 2)
	assert.Equal(t, models.LineCatalog, order.Lines[0].Kind)
	require.NotNil(t, order.Lines[0].ItemID)
	assert.Equal(t, coffee.ID, *order.Lines[0].ItemID)
	assert.Equal(t, models.LineAdHoc, order.Lines[1].Kind)
	assert.Nil(t, order.Lines[1].ItemID)
	assert.Equal(t, "sin azúcar", order.Lines[1].Note)

	// Editing the catalog afterwards leaves the placed order alone.
	newPrice := d("9.99")
	newName := "Espresso"
	_, err := f.catalog.Update(f.ctx, coffee.ID, models.ItemPatch{Name: &newName, Price: &newPrice})
	require.NoError(t, err)

	got, err := f.ledger.Get(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Lines[0].Name)
	assert.Equal(t, "3.50", got.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "8.00", got.Total.StringFixed(2))
}

func TestOrderIDs_Monotonic(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")

	first := f.submit(t, catalogEntry(coffee.ID, 1))
	require.NoError(t, f.ledger.Delete(f.ctx, first.ID))
	second := f.submit(t, catalogEntry(coffee.ID, 1))
	_, err := f.ledger.Complete(f.ctx, second.ID)
	require.NoError(t, err)
	third := f.submit(t, catalogEntry(coffee.ID, 1))

	assert.Equal(t, []int64{1, 2, 3}, []int64{first.ID, second.ID, third.ID})
}

func TestApplyDiscount_IdempotentAgainstOriginal(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "10.00")
	order := f.submit(t, catalogEntry(coffee.ID, 2))

	once, err := f.ledger.ApplyDiscount(f.ctx, order.ID, d("10"))
	require.NoError(t, err)
	twice, err := f.ledger.ApplyDiscount(f.ctx, order.ID, d("10"))
	require.NoError(t, err)

	assert.Equal(t, "18.00", once.Total.StringFixed(2))
	assert.Equal(t, "18.00", twice.Total.StringFixed(2))
	assert.Equal(t, "20.00", twice.OriginalTotal.StringFixed(2))
	assert.Equal(t, "10", twice.DiscountPercent.String())
}

func TestAdjust_Errors(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	_, err := f.ledger.AdjustTotal(f.ctx, order.ID, d("-5"))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = f.ledger.ApplyDiscount(f.ctx, order.ID, d("101"))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	// A rejected adjustment must not snapshot the original total.
	got, err := f.ledger.Get(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OriginalTotal)

	_, err = f.ledger.AdjustTotal(f.ctx, 999, d("1"))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.ledger.Complete(f.ctx, order.ID)
	require.NoError(t, err)
	_, err = f.ledger.AdjustTotal(f.ctx, order.ID, d("1"))
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = f.ledger.ApplyDiscount(f.ctx, order.ID, d("5"))
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestComplete_Errors(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	_, err := f.ledger.Complete(f.ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.ledger.Complete(f.ctx, order.ID)
	require.NoError(t, err)
	_, err = f.ledger.Complete(f.ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	history, err := f.ledger.History(f.ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestComplete_HistoryWriteFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	f.backend.breakWrites(store.CompletedOrders, true)
	_, err := f.ledger.Complete(f.ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	f.backend.breakWrites(store.CompletedOrders, false)

	pending, err := f.ledger.Pending(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OrderPending, pending[0].Status)

	history, err := f.ledger.History(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestComplete_PendingWriteFailureRollsBackHistory(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	f.backend.breakWrites(store.PendingOrders, true)
	_, err := f.ledger.Complete(f.ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	f.backend.breakWrites(store.PendingOrders, false)

	pending, err := f.ledger.Pending(f.ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	history, err := f.ledger.History(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The order can still be settled once the store recovers.
	_, err = f.ledger.Complete(f.ctx, order.ID)
	require.NoError(t, err)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	require.NoError(t, f.ledger.Delete(f.ctx, order.ID))
	assert.ErrorIs(t, f.ledger.Delete(f.ctx, order.ID), models.ErrNotFound)

	history, err := f.ledger.History(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	done := f.submit(t, catalogEntry(coffee.ID, 1))
	_, err = f.ledger.Complete(f.ctx, done.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ledger.Delete(f.ctx, done.ID), models.ErrInvalidState)
}

func TestHistory_MostRecentFirstWithLimit(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "1.00")

	var ids []int64
	for i := 0; i < 5; i++ {
		order := f.submit(t, catalogEntry(coffee.ID, i+1))
		_, err := f.ledger.Complete(f.ctx, order.ID)
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	history, err := f.ledger.History(f.ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, []int64{history[0].ID, history[1].ID, history[2].ID})

	all, err := f.ledger.History(f.ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestComplete_ConcurrentCallersSettleOnce(t *testing.T) {
	f := newFixture(t)
	coffee := f.item(t, "Coffee", "3.50")
	order := f.submit(t, catalogEntry(coffee.ID, 1))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Complete(f.ctx, order.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrInvalidState)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	history, err := f.ledger.History(f.ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
