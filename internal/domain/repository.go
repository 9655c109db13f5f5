package domain

import (
	"context"
	"time"
)

// StockChange is one audit record of a stock adjustment.
type StockChange struct {
	ID            int64     `json:"id"`
	ItemID        int64     `json:"itemId"`
	Delta         float64   `json:"delta"`
	PreviousStock float64   `json:"previousStock"`
	NewStock      float64   `json:"newStock"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// StoredOrder is a persisted, resolved order.
type StoredOrder struct {
	ID            string                `json:"id"`
	CustomerName  string                `json:"customerName"`
	CustomerPhone string                `json:"customerPhone,omitempty"`
	Text          string                `json:"text"`
	Result        OrderResolutionResult `json:"result"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// CatalogSource supplies consistent, immutable catalog snapshots. The engine
// never calls mutating operations; every mutation belongs to the store and
// becomes visible only through a later snapshot.
type CatalogSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// InventoryRepository defines the interface for catalog persistence.
type InventoryRepository interface {
	CatalogSource

	AddItem(ctx context.Context, item CatalogItem) (int64, error)
	ItemByID(ctx context.Context, id int64) (*CatalogItem, error)
	ListItems(ctx context.Context, category string, inStockOnly bool) ([]CatalogItem, error)
	SearchItems(ctx context.Context, query string) ([]CatalogItem, error)
	AdjustStock(ctx context.Context, id int64, delta float64, reason string) (*CatalogItem, error)
	DeleteItem(ctx context.Context, id int64) error
	StockHistory(ctx context.Context, id int64, limit int) ([]StockChange, error)
}

// OrderRepository defines the interface for order history persistence.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *StoredOrder) error
	OrderByID(ctx context.Context, id string) (*StoredOrder, error)
}

// ResultCache caches completed resolution results. Keys embed the snapshot
// version, so cached entries can never leak across catalog states.
type ResultCache interface {
	Get(ctx context.Context, key string) (*OrderResolutionResult, error)
	Set(ctx context.Context, key string, result *OrderResolutionResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
