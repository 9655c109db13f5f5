package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// SQLiteStore persists the item catalog, stock audit trail and resolved
// orders. It implements domain.InventoryRepository and domain.OrderRepository.
//
// The catalog snapshot is built lazily and cached; any mutation bumps the
// version and drops the cached snapshot, so readers always observe a
// consistent catalog state.
type SQLiteStore struct {
	conn *sql.DB

	mu      sync.Mutex
	snap    *domain.Snapshot
	version int64
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &SQLiteStore{conn: conn, version: 1}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  aliases TEXT NOT NULL DEFAULT '[]',
  brand TEXT NOT NULL DEFAULT '',
  preferred INTEGER NOT NULL DEFAULT 0,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL,
  price TEXT NOT NULL,
  gst_rate INTEGER NOT NULL,
  stock REAL NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

CREATE TABLE IF NOT EXISTS stock_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id INTEGER NOT NULL,
  delta REAL NOT NULL,
  previous_stock REAL NOT NULL,
  new_stock REAL NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(item_id) REFERENCES items(id)
);
CREATE INDEX IF NOT EXISTS idx_stock_history_item ON stock_history(item_id);

CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_name TEXT NOT NULL DEFAULT '',
  customer_phone TEXT NOT NULL DEFAULT '',
  order_text TEXT NOT NULL,
  status TEXT NOT NULL,
  snapshot_version INTEGER NOT NULL,
  subtotal TEXT NOT NULL DEFAULT '0',
  total_tax TEXT NOT NULL DEFAULT '0',
  grand_total TEXT NOT NULL DEFAULT '0',
  result_json TEXT NOT NULL,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL,
  line_no INTEGER NOT NULL,
  raw TEXT NOT NULL,
  status TEXT NOT NULL,
  item_id INTEGER,
  quantity REAL NOT NULL,
  fulfilled REAL NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT '',
  confidence REAL NOT NULL DEFAULT 0,
  amount TEXT NOT NULL DEFAULT '0',
  FOREIGN KEY(order_id) REFERENCES orders(id)
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);
`

	_, err := s.conn.Exec(schema)
	return err
}

// bump invalidates the cached snapshot after a catalog mutation.
// Callers must hold s.mu.
func (s *SQLiteStore) bump() {
	s.version++
	s.snap = nil
}

// Snapshot returns the current catalog snapshot, building and caching it on
// first use after a mutation.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap != nil {
		return s.snap, nil
	}

	items, err := s.loadItems(ctx, "", false)
	if err != nil {
		return nil, err
	}

	snap, err := domain.NewSnapshot(s.version, items)
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return snap, nil
}

func validateItem(item domain.CatalogItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: item name is required", domain.ErrInvalidRequest)
	}
	if !item.Unit.Valid() {
		return fmt.Errorf("%w: unknown unit %q", domain.ErrInvalidRequest, item.Unit)
	}
	if !domain.ValidGSTRate(item.GSTRate) {
		return fmt.Errorf("%w: gst rate %d is not a valid bracket", domain.ErrInvalidRequest, item.GSTRate)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRequest)
	}
	if item.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidRequest)
	}
	return nil
}

// AddItem inserts a new catalog item and returns its id.
func (s *SQLiteStore) AddItem(ctx context.Context, item domain.CatalogItem) (int64, error) {
	if err := validateItem(item); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadItems(ctx, "", false)
	if err != nil {
		return 0, err
	}
	taken := make(map[string]string)
	for _, it := range existing {
		taken[domain.Normalize(it.Name)] = it.Name
		for _, alias := range it.Aliases {
			taken[domain.Normalize(alias)] = it.Name
		}
	}
	if owner, ok := taken[domain.Normalize(item.Name)]; ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrItemExists, owner)
	}
	for _, alias := range item.Aliases {
		if owner, ok := taken[domain.Normalize(alias)]; ok {
			return 0, fmt.Errorf("%w: alias %q already belongs to %q", domain.ErrAliasCollision, alias, owner)
		}
	}

	aliasJSON, err := json.Marshal(item.Aliases)
	if err != nil {
		return 0, err
	}

	res, err := s.conn.ExecContext(ctx, `
INSERT INTO items (name, aliases, brand, preferred, category, unit, price, gst_rate, stock)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, item.Name, string(aliasJSON), item.Brand, boolToInt(item.Preferred), item.Category,
		string(item.Unit), item.Price.String(), item.GSTRate, item.Stock)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	s.bump()
	return id, nil
}

// ItemByID fetches one item, or domain.ErrItemNotFound.
func (s *SQLiteStore) ItemByID(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT id, name, aliases, brand, preferred, category, unit, price, gst_rate, stock
FROM items WHERE id = ?
`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns items, optionally filtered by category and stock.
func (s *SQLiteStore) ListItems(ctx context.Context, category string, inStockOnly bool) ([]domain.CatalogItem, error) {
	return s.loadItems(ctx, category, inStockOnly)
}

// SearchItems matches the query against normalized item names and aliases.
func (s *SQLiteStore) SearchItems(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	q := domain.Normalize(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidRequest)
	}

	items, err := s.loadItems(ctx, "", false)
	if err != nil {
		return nil, err
	}

	var out []domain.CatalogItem
	for _, it := range items {
		if strings.Contains(domain.Normalize(it.Name), q) {
			out = append(out, it)
			continue
		}
		for _, alias := range it.Aliases {
			if strings.Contains(domain.Normalize(alias), q) {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

// AdjustStock applies a stock delta atomically and records the change in the
// audit trail. A delta that would drive stock negative fails with
// domain.ErrInsufficientStock and leaves the row untouched.
func (s *SQLiteStore) AdjustStock(ctx context.Context, id int64, delta float64, reason string) (*domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current float64
	err = tx.QueryRowContext(ctx, `SELECT stock FROM items WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	next := current + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: item %d has %.3f, adjustment %.3f", domain.ErrInsufficientStock, id, current, delta)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE items SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`, next, id); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO stock_history (item_id, delta, previous_stock, new_stock, reason)
VALUES (?, ?, ?, ?, ?)
`, id, delta, current, next, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.bump()

	row := s.conn.QueryRowContext(ctx, `
SELECT id, name, aliases, brand, preferred, category, unit, price, gst_rate, stock
FROM items WHERE id = ?
`, id)
	return scanItem(row)
}

// DeleteItem removes an item from the catalog.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}

	s.bump()
	return nil
}

// StockHistory returns the most recent stock changes for an item, newest first.
func (s *SQLiteStore) StockHistory(ctx context.Context, id int64, limit int) ([]domain.StockChange, error) {
	if _, err := s.ItemByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.QueryContext(ctx, `
SELECT id, item_id, delta, previous_stock, new_stock, reason, created_at
FROM stock_history WHERE item_id = ? ORDER BY id DESC LIMIT ?
`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockChange
	for rows.Next() {
		var c domain.StockChange
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ItemID, &c.Delta, &c.PreviousStock, &c.NewStock, &c.Reason, &createdAt); err != nil {
			return nil, err
		}
		c.At = parseTimestamp(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveOrder persists a resolved order and its lines.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.StoredOrder) error {
	resultJSON, err := json.Marshal(order.Result)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO orders (id, customer_name, customer_phone, order_text, status, snapshot_version, subtotal, total_tax, grand_total, result_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, order.ID, order.CustomerName, order.CustomerPhone, order.Text,
		string(order.Result.Status), order.Result.SnapshotVersion,
		order.Result.Bill.Subtotal.String(), order.Result.Bill.TotalTax.String(),
		order.Result.Bill.GrandTotal.String(),
		string(resultJSON), order.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	for i, line := range order.Result.Lines {
		var itemID interface{}
		if line.Item != nil {
			itemID = line.Item.ID
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO order_lines (order_id, line_no, raw, status, item_id, quantity, fulfilled, unit, confidence, amount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, order.ID, i+1, line.Fragment.Raw, string(line.Status), itemID,
			line.RequestedQty, line.FulfillableQty, string(line.Unit),
			line.Confidence, line.Amount.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// OrderByID fetches a stored order, or domain.ErrOrderNotFound.
func (s *SQLiteStore) OrderByID(ctx context.Context, id string) (*domain.StoredOrder, error) {
	var order domain.StoredOrder
	var resultJSON, createdAt string
	err := s.conn.QueryRowContext(ctx, `
SELECT id, customer_name, customer_phone, order_text, result_json, created_at
FROM orders WHERE id = ?
`, id).Scan(&order.ID, &order.CustomerName, &order.CustomerPhone, &order.Text, &resultJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(resultJSON), &order.Result); err != nil {
		return nil, fmt.Errorf("decode stored order %s: %w", id, err)
	}
	order.CreatedAt = parseTimestamp(createdAt)
	return &order, nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, category string, inStockOnly bool) ([]domain.CatalogItem, error) {
	query := `
SELECT id, name, aliases, brand, preferred, category, unit, price, gst_rate, stock
FROM items`
	var conds []string
	var args []interface{}
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	if inStockOnly {
		conds = append(conds, "stock > 0")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	var aliasJSON, price string
	var preferred int
	if err := row.Scan(&item.ID, &item.Name, &aliasJSON, &item.Brand, &preferred,
		&item.Category, &item.Unit, &price, &item.GSTRate, &item.Stock); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(aliasJSON), &item.Aliases); err != nil {
		return nil, fmt.Errorf("decode aliases for item %d: %w", item.ID, err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price for item %d: %w", item.ID, err)
	}
	item.Price = p
	item.Preferred = preferred != 0
	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
