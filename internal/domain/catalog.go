package domain

import "fmt"

// Snapshot is an immutable, queryable view of the catalog at one point in
// time. The resolution engine only ever reads it; the inventory store builds
// a fresh snapshot after every write and publishes it atomically, so an
// in-flight resolution never observes a half-updated catalog.
type Snapshot struct {
	version int64
	items   []CatalogItem

	byID    map[int64]*CatalogItem
	byAlias map[string]int64
	tokens  map[string]map[int64]struct{}
}

// NewSnapshot validates items and builds the lookup indexes. It fails when a
// normalized alias (or canonical name) maps to more than one item, when an
// item carries an unknown unit or GST rate, or when stock is negative.
// Catalog problems surface here, at load time, never during resolution.
func NewSnapshot(version int64, items []CatalogItem) (*Snapshot, error) {
	snap := &Snapshot{
		version: version,
		items:   make([]CatalogItem, len(items)),
		byID:    make(map[int64]*CatalogItem, len(items)),
		byAlias: make(map[string]int64, len(items)*2),
		tokens:  make(map[string]map[int64]struct{}),
	}
	copy(snap.items, items)

	for i := range snap.items {
		item := &snap.items[i]
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", ErrInvalidCatalog, item.ID)
		}
		if !item.Unit.Valid() {
			return nil, fmt.Errorf("%w: item %q has unknown unit %q", ErrInvalidCatalog, item.Name, item.Unit)
		}
		if !ValidGSTRate(item.GSTRate) {
			return nil, fmt.Errorf("%w: item %q has GST rate %d outside {0,5,12,18}", ErrInvalidCatalog, item.Name, item.GSTRate)
		}
		if item.Stock < 0 {
			return nil, fmt.Errorf("%w: item %q has negative stock", ErrInvalidCatalog, item.Name)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %q has negative price", ErrInvalidCatalog, item.Name)
		}
		if _, dup := snap.byID[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrInvalidCatalog, item.ID)
		}
		snap.byID[item.ID] = item

		for _, name := range append([]string{item.Name}, item.Aliases...) {
			key := Normalize(name)
			if key == "" {
				continue
			}
			if owner, taken := snap.byAlias[key]; taken && owner != item.ID {
				return nil, fmt.Errorf("%w: alias %q maps to items %d and %d",
					ErrAliasCollision, key, owner, item.ID)
			}
			snap.byAlias[key] = item.ID

			for _, tok := range TokenizeName(name) {
				set, ok := snap.tokens[tok]
				if !ok {
					set = make(map[int64]struct{})
					snap.tokens[tok] = set
				}
				set[item.ID] = struct{}{}
			}
		}
	}
	return snap, nil
}

// Version identifies this snapshot; the store bumps it on every write.
func (s *Snapshot) Version() int64 { return s.version }

// Len reports the number of items in the snapshot.
func (s *Snapshot) Len() int { return len(s.items) }

// Items returns all items in catalog order. Callers must not mutate them.
func (s *Snapshot) Items() []CatalogItem { return s.items }

// ByID looks up an item by its id.
func (s *Snapshot) ByID(id int64) (*CatalogItem, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// ByAlias resolves an exact normalized name or alias to its item.
func (s *Snapshot) ByAlias(normalized string) (*CatalogItem, bool) {
	id, ok := s.byAlias[normalized]
	if !ok {
		return nil, false
	}
	return s.byID[id], true
}

// CandidateIDs returns the ids of items sharing at least one word token with
// the given tokens. Used to narrow fuzzy scoring on larger catalogs.
func (s *Snapshot) CandidateIDs(tokens []string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, tok := range tokens {
		for id := range s.tokens[tok] {
			ids[id] = struct{}{}
		}
	}
	return ids
}
