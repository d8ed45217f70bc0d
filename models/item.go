package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemState string

const (
	ItemActive  ItemState = "active"
	ItemDeleted ItemState = "deleted"
)

// ItemFilter selects a partition of the catalog.
type ItemFilter string

const (
	FilterActive  ItemFilter = "active"
	FilterDeleted ItemFilter = "deleted"
	FilterAll     ItemFilter = "all"
)

func (f ItemFilter) Matches(state ItemState) bool {
	switch f {
	case FilterActive:
		return state == ItemActive
	case FilterDeleted:
		return state == ItemDeleted
	default:
		return true
	}
}

type Item struct {
	ID            int64           `bson:"id" json:"id"`
	Name          string          `bson:"name" json:"name"`
	Price         decimal.Decimal `bson:"price" json:"price"`
	PhotoRef      string          `bson:"photo_ref" json:"photo"`
	DisplayNumber string          `bson:"display_number" json:"number"`
	State         ItemState       `bson:"state" json:"state"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updatedAt"`
	DeletedAt     *time.Time      `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	RestoredAt    *time.Time      `bson:"restored_at,omitempty" json:"restoredAt,omitempty"`
}

type NewItem struct {
	Name          string           `json:"name" binding:"required"`
	Price         *decimal.Decimal `json:"price"`
	PhotoRef      string           `json:"photo"`
	DisplayNumber string           `json:"number"`
}

// ItemPatch is a partial update; nil fields are left untouched.
type ItemPatch struct {
	Name          *string          `json:"name,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PhotoRef      *string          `json:"photo,omitempty"`
	DisplayNumber *string          `json:"number,omitempty"`
}
