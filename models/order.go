package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// LineSource is either a CatalogLine or an AdHocLine.
type LineSource interface {
	lineSource()
}

// CatalogLine refers to a catalog item; name and price are copied from the
// catalog when the order is submitted.
type CatalogLine struct {
	ItemID int64
}

// AdHocLine carries its own name and price and does not touch the catalog.
type AdHocLine struct {
	Name  string
	Price decimal.Decimal
}

func (CatalogLine) lineSource() {}
func (AdHocLine) lineSource()   {}

type CartEntry struct {
	Source   LineSource
	Quantity int
	Note     string
}

type LineKind string

const (
	LineCatalog LineKind = "catalog"
	LineAdHoc   LineKind = "adhoc"
)

// OrderLine is the snapshot stored with an order. Later catalog edits never
// change it.
type OrderLine struct {
	Kind      LineKind        `bson:"kind" json:"kind"`
	ItemID    *int64          `bson:"item_id,omitempty" json:"itemId,omitempty"`
	Name      string          `bson:"name" json:"name"`
	UnitPrice decimal.Decimal `bson:"unit_price" json:"price"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	Note      string          `bson:"note,omitempty" json:"note,omitempty"`
}

type Order struct {
	ID              int64            `bson:"id" json:"id"`
	Lines           []OrderLine      `bson:"lines" json:"items"`
	Total           decimal.Decimal  `bson:"total" json:"total"`
	OriginalTotal   *decimal.Decimal `bson:"original_total,omitempty" json:"originalTotal,omitempty"`
	DiscountPercent *decimal.Decimal `bson:"discount_percent,omitempty" json:"discountPercent,omitempty"`
	CreatedBy       string           `bson:"created_by" json:"createdBy"`
	CreatedAt       time.Time        `bson:"created_at" json:"timestamp"`
	CompletedAt     *time.Time       `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	Status          OrderStatus      `bson:"status" json:"status"`
}
