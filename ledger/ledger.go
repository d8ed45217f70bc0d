// Package ledger holds pending orders and the completed-order history, and
// moves orders between them.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"posterminal/models"
	"posterminal/pricing"
	"posterminal/store"
)

// DefaultHistoryLimit is used when History is called without a limit.
const DefaultHistoryLimit = 100

// ItemLookup resolves a catalog line to the item's current name and price.
type ItemLookup interface {
	Lookup(ctx context.Context, id int64) (string, decimal.Decimal, error)
}

type pendingTable struct {
	// LastID is the last order id issued. It lives with the pending set
	// because only Submit allocates ids.
	LastID int64          `bson:"last_id"`
	Orders []models.Order `bson:"orders"`
}

type historyTable struct {
	Orders []models.Order `bson:"orders"`
}

func indexOf(orders []models.Order, id int64) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

type Ledger struct {
	pending *store.Collection[pendingTable]
	history *store.Collection[historyTable]
	items   ItemLookup
	now     func() time.Time
	log     zerolog.Logger
}

func New(backend store.Store, items ItemLookup, log zerolog.Logger) *Ledger {
	return &Ledger{
		pending: store.NewCollection[pendingTable](backend, store.PendingOrders),
		history: store.NewCollection[historyTable](backend, store.CompletedOrders),
		items:   items,
		now:     time.Now,
		log:     log,
	}
}

// Submit turns a cart into a pending order created by identity.
func (l *Ledger) Submit(ctx context.Context, cart []models.CartEntry, identity string) (models.Order, error) {
	if len(cart) == 0 {
		return models.Order{}, fmt.Errorf("%w: cart is empty", models.ErrInvalidArgument)
	}
	lines, err := l.snapshotLines(ctx, cart)
	if err != nil {
		return models.Order{}, err
	}

	var order models.Order
	err = l.pending.Mutate(ctx, func(t *pendingTable) error {
		t.LastID++
		order = models.Order{
			ID:        t.LastID,
			Lines:     lines,
			Total:     pricing.Total(lines),
			CreatedBy: identity,
			CreatedAt: l.now().UTC(),
			Status:    models.OrderPending,
		}
		t.Orders = append(t.Orders, order)
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	l.log.Info().Int64("order_id", order.ID).Str("user", identity).Str("total", order.Total.String()).Int("lines", len(lines)).Msg("order submitted")
	return order, nil
}

func (l *Ledger) snapshotLines(ctx context.Context, cart []models.CartEntry) ([]models.OrderLine, error) {
	lines := make([]models.OrderLine, 0, len(cart))
	for i, entry := range cart {
		if entry.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d quantity must be at least 1", models.ErrInvalidArgument, i+1)
		}
		line := models.OrderLine{Quantity: entry.Quantity, Note: strings.TrimSpace(entry.Note)}

		switch src := entry.Source.(type) {
		case models.CatalogLine:
			name, price, err := l.items.Lookup(ctx, src.ItemID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			id := src.ItemID
			line.Kind = models.LineCatalog
			line.ItemID = &id
			line.Name = name
			line.UnitPrice = price
		case models.AdHocLine:
			name := strings.TrimSpace(src.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: line %d needs a name", models.ErrInvalidArgument, i+1)
			}
			if err := pricing.ValidateAmount("price", src.Price); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			line.Kind = models.LineAdHoc
			line.Name = name
			line.UnitPrice = src.Price
		default:
			return nil, fmt.Errorf("%w: line %d has no source", models.ErrInvalidArgument, i+1)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Pending lists pending orders in submission order.
func (l *Ledger) Pending(ctx context.Context) ([]models.Order, error) {
	t, err := l.pending.View(ctx)
	if err != nil {
		return nil, err
	}
	if t.Orders == nil {
		return []models.Order{}, nil
	}
	return t.Orders, nil
}

// Get finds an order in either state.
func (l *Ledger) Get(ctx context.Context, id int64) (models.Order, error) {
	l.pending.RLock()
	defer l.pending.RUnlock()
	l.history.RLock()
	defer l.history.RUnlock()

	p, err := l.pending.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if i := indexOf(p.Orders, id); i >= 0 {
		return p.Orders[i], nil
	}
	h, err := l.history.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if i := indexOf(h.Orders, id); i >= 0 {
		return h.Orders[i], nil
	}
	return models.Order{}, orderNotFound(id)
}

// AdjustTotal overrides the total of a pending order.
func (l *Ledger) AdjustTotal(ctx context.Context, id int64, newTotal decimal.Decimal) (models.Order, error) {
	return l.adjust(ctx, id, func(o *models.Order) error {
		return pricing.Override(o, newTotal)
	})
}

// ApplyDiscount discounts a pending order by percent of its original total.
func (l *Ledger) ApplyDiscount(ctx context.Context, id int64, percent decimal.Decimal) (models.Order, error) {
	return l.adjust(ctx, id, func(o *models.Order) error {
		return pricing.Discount(o, percent)
	})
}

func (l *Ledger) adjust(ctx context.Context, id int64, apply func(*models.Order) error) (models.Order, error) {
	l.pending.Lock()
	defer l.pending.Unlock()

	p, err := l.pending.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	i := indexOf(p.Orders, id)
	if i < 0 {
		return models.Order{}, l.missingPending(ctx, id)
	}

	order := p.Orders[i]
	if err := apply(&order); err != nil {
		return models.Order{}, err
	}
	p.Orders[i] = order
	if err := l.pending.Save(ctx, p); err != nil {
		return models.Order{}, err
	}
	l.log.Info().Int64("order_id", id).Str("total", order.Total.String()).Str("original_total", order.OriginalTotal.String()).Msg("order total adjusted")
	return order, nil
}

// Complete settles a pending order and moves it to history. On error the
// pending set is left as it was.
func (l *Ledger) Complete(ctx context.Context, id int64) (models.Order, error) {
	l.pending.Lock()
	defer l.pending.Unlock()
	l.history.Lock()
	defer l.history.Unlock()

	p, err := l.pending.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	h, err := l.history.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}

	i := indexOf(p.Orders, id)
	if i < 0 {
		if indexOf(h.Orders, id) >= 0 {
			return models.Order{}, alreadyCompleted(id)
		}
		return models.Order{}, orderNotFound(id)
	}

	order := p.Orders[i]
	completedAt := l.now().UTC()
	order.Status = models.OrderCompleted
	order.CompletedAt = &completedAt

	previous := historyTable{Orders: append([]models.Order(nil), h.Orders...)}
	h.Orders = append(h.Orders, order)
	if err := l.history.Save(ctx, h); err != nil {
		return models.Order{}, err
	}

	p.Orders = append(p.Orders[:i], p.Orders[i+1:]...)
	if err := l.pending.Save(ctx, p); err != nil {
		if rbErr := l.history.Save(ctx, previous); rbErr != nil {
			l.log.Error().Err(rbErr).Int64("order_id", id).Msg("history rollback failed")
		}
		return models.Order{}, err
	}

	l.log.Info().Int64("order_id", id).Str("total", order.Total.String()).Msg("order completed")
	return order, nil
}

// Delete discards a pending order without settling it.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	l.pending.Lock()
	defer l.pending.Unlock()

	p, err := l.pending.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(p.Orders, id)
	if i < 0 {
		return l.missingPending(ctx, id)
	}
	p.Orders = append(p.Orders[:i], p.Orders[i+1:]...)
	if err := l.pending.Save(ctx, p); err != nil {
		return err
	}
	l.log.Info().Int64("order_id", id).Msg("order discarded")
	return nil
}

// History returns up to limit completed orders, most recent first.
func (l *Ledger) History(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h, err := l.history.View(ctx)
	if err != nil {
		return nil, err
	}
	n := len(h.Orders)
	if limit > n {
		limit = n
	}
	orders := make([]models.Order, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		orders = append(orders, h.Orders[i])
	}
	return orders, nil
}

// missingPending tells a completed order apart from an unknown one. The
// caller holds the pending lock, so history is locked after it.
func (l *Ledger) missingPending(ctx context.Context, id int64) error {
	h, err := l.history.View(ctx)
	if err != nil {
		return err
	}
	if indexOf(h.Orders, id) >= 0 {
		return alreadyCompleted(id)
	}
	return orderNotFound(id)
}

func orderNotFound(id int64) error {
	return fmt.Errorf("%w: order %d", models.ErrNotFound, id)
}

func alreadyCompleted(id int64) error {
	return fmt.Errorf("%w: order %d is already completed", models.ErrInvalidState, id)
}
