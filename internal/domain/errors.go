package domain

import "errors"

var (
	// ErrNoCatalog is returned when resolution is attempted without a catalog snapshot
	ErrNoCatalog = errors.New("no catalog snapshot supplied")

	// ErrInvalidCatalog is returned when catalog-load-time validation fails
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrAliasCollision is returned when one alias maps to two catalog items
	ErrAliasCollision = errors.New("alias maps to multiple items")

	// ErrQuantityOverflow is returned when a requested quantity exceeds billing bounds
	ErrQuantityOverflow = errors.New("quantity exceeds billable bounds")

	// ErrItemNotFound is returned when a catalog item does not exist in the store
	ErrItemNotFound = errors.New("item not found")

	// ErrItemExists is returned when adding an item whose name is already taken
	ErrItemExists = errors.New("item already exists")

	// ErrInsufficientStock is returned when a stock adjustment would go negative
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOrderNotFound is returned when an order id has no stored order
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
