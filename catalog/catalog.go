// Package catalog owns the sellable items and their active/deleted state.
package catalog

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

type itemTable struct {
	// LastID is the highest id ever issued. Ids are not reused after purge.
	LastID int64         `bson:"last_id"`
	Items  []models.Item `bson:"items"`
}

func (t *itemTable) find(id int64) int {
	for i := range t.Items {
		if t.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *itemTable) nextID() int64 {
	next := t.LastID
	for _, item := range t.Items {
		if item.ID > next {
			next = item.ID
		}
	}
	return next + 1
}

type Manager struct {
	items *store.Collection[itemTable]
	now   func() time.Time
	log   zerolog.Logger
}

func NewManager(backend store.Store, log zerolog.Logger) *Manager {
	return &Manager{
		items: store.NewCollection[itemTable](backend, store.Items),
		now:   time.Now,
		log:   log,
	}
}

// List returns the items matching filter in insertion order.
func (m *Manager) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	switch filter {
	case models.FilterActive, models.FilterDeleted, models.FilterAll:
	default:
		return nil, fmt.Errorf("%w: unknown item filter %q", models.ErrInvalidArgument, filter)
	}

	t, err := m.items.View(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(t.Items))
	for _, item := range t.Items {
		if filter.Matches(item.State) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Get returns an item in either state.
func (m *Manager) Get(ctx context.Context, id int64) (models.Item, error) {
	t, err := m.items.View(ctx)
	if err != nil {
		return models.Item{}, err
	}
	i := t.find(id)
	if i < 0 {
		return models.Item{}, notFound(id)
	}
	return t.Items[i], nil
}

func (m *Manager) Create(ctx context.Context, in models.NewItem) (models.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Item{}, fmt.Errorf("%w: item name is required", models.ErrInvalidArgument)
	}
	if in.Price == nil {
		return models.Item{}, fmt.Errorf("%w: item price is required", models.ErrInvalidArgument)
	}
	if err := pricing.ValidateAmount("price", *in.Price); err != nil {
		return models.Item{}, err
	}

	var created models.Item
	err := m.items.Mutate(ctx, func(t *itemTable) error {
		now := m.now().UTC()
		id := t.nextID()
		created = models.Item{
			ID:            id,
			Name:          name,
			Price:         *in.Price,
			PhotoRef:      in.PhotoRef,
			DisplayNumber: displayNumber(in.DisplayNumber, id),
			State:         models.ItemActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		t.Items = append(t.Items, created)
		t.LastID = id
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	m.log.Info().Int64("item_id", created.ID).Str("name", created.Name).Str("price", created.Price.String()).Msg("item created")
	return created, nil
}

// Update applies the non-nil fields of patch.
func (m *Manager) Update(ctx context.Context, id int64, patch models.ItemPatch) (models.Item, error) {
	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Item{}, fmt.Errorf("%w: item name is required", models.ErrInvalidArgument)
		}
	}
	if patch.Price != nil {
		if err := pricing.ValidateAmount("price", *patch.Price); err != nil {
			return models.Item{}, err
		}
	}

	var updated models.Item
	err := m.items.Mutate(ctx, func(t *itemTable) error {
		i := t.find(id)
		if i < 0 {
			return notFound(id)
		}
		item := &t.Items[i]
		if patch.Name != nil {
			item.Name = name
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.PhotoRef != nil {
			item.PhotoRef = *patch.PhotoRef
		}
		if patch.DisplayNumber != nil {
			item.DisplayNumber = displayNumber(*patch.DisplayNumber, item.ID)
		}
		item.UpdatedAt = m.now().UTC()
		updated = *item
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return updated, nil
}

// SoftDelete hides an active item from sale. It can be restored.
func (m *Manager) SoftDelete(ctx context.Context, id int64) error {
	err := m.items.Mutate(ctx, func(t *itemTable) error {
		i := t.find(id)
		if i < 0 || t.Items[i].State != models.ItemActive {
			return fmt.Errorf("%w: active item %d", models.ErrNotFound, id)
		}
		now := m.now().UTC()
		t.Items[i].State = models.ItemDeleted
		t.Items[i].DeletedAt = &now
		t.Items[i].UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info().Int64("item_id", id).Msg("item deleted")
	return nil
}

func (m *Manager) Restore(ctx context.Context, id int64) error {
	err := m.items.Mutate(ctx, func(t *itemTable) error {
		i := t.find(id)
		if i < 0 || t.Items[i].State != models.ItemDeleted {
			return fmt.Errorf("%w: deleted item %d", models.ErrNotFound, id)
		}
		now := m.now().UTC()
		t.Items[i].State = models.ItemActive
		t.Items[i].DeletedAt = nil
		t.Items[i].RestoredAt = &now
		t.Items[i].UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info().Int64("item_id", id).Msg("item restored")
	return nil
}

// Purge permanently removes a deleted item. Active items must be soft
// deleted first.
func (m *Manager) Purge(ctx context.Context, id int64) error {
	err := m.items.Mutate(ctx, func(t *itemTable) error {
		i := t.find(id)
		if i < 0 {
			return notFound(id)
		}
		if t.Items[i].State != models.ItemDeleted {
			return fmt.Errorf("%w: item %d must be deleted before it is purged", models.ErrInvalidState, id)
		}
		t.Items = append(t.Items[:i], t.Items[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Warn().Int64("item_id", id).Msg("item purged")
	return nil
}

// Lookup returns the name and price of an active item for an order line.
func (m *Manager) Lookup(ctx context.Context, id int64) (string, decimal.Decimal, error) {
	item, err := m.Get(ctx, id)
	if err != nil {
		return "", decimal.Zero, err
	}
	if item.State != models.ItemActive {
		return "", decimal.Zero, fmt.Errorf("%w: item %d is not for sale", models.ErrNotFound, id)
	}
	return item.Name, item.Price, nil
}

func displayNumber(label string, id int64) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return fmt.Sprintf("%03d", id)
}

func notFound(id int64) error {
	return fmt.Errorf("%w: item %d", models.ErrNotFound, id)
}
