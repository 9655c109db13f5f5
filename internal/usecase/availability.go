package usecase

import (
	"sort"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultSubstituteLimit caps how many substitutes annotate a line.
const DefaultSubstituteLimit = 3

// CheckAvailability compares requested quantity against stock. The engine
// never mutates stock; decrementing after confirmation is the caller's call.
func CheckAvailability(item *domain.CatalogItem, requested float64) (float64, domain.LineStatus) {
	switch {
	case item.Stock <= 0:
		return 0, domain.StatusOutOfStock
	case item.Stock < requested:
		return item.Stock, domain.StatusPartiallyAvailable
	default:
		return requested, domain.StatusMatched
	}
}

// Substitutes proposes in-stock replacements for an unmatched or
// out-of-stock line. With a reference item the pool narrows to its unit
// family; ranking is same-category first, then phrase similarity, then price
// proximity to the reference, then preferred brand, then name. Substitutes
// only annotate the reply; they are never billed automatically.
func (r *Resolver) Substitutes(snap *domain.Snapshot, phrase string, ref *domain.CatalogItem, limit int) []domain.Substitute {
	if snap == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSubstituteLimit
	}
	norm := domain.Normalize(phrase)
	tokens := domain.TokenizeName(phrase)

	type ranked struct {
		item         *domain.CatalogItem
		sameCategory bool
		score        float64
		priceGap     decimal.Decimal
	}
	pool := make([]ranked, 0, snap.Len())
	for _, it := range snap.Items() {
		item, _ := snap.ByID(it.ID)
		if item.Stock <= 0 {
			continue
		}
		if ref != nil {
			if item.ID == ref.ID {
				continue
			}
			if item.Unit.Family() != ref.Unit.Family() {
				continue
			}
		}
		entry := ranked{item: item, score: r.itemScore(norm, tokens, item)}
		if ref != nil {
			entry.sameCategory = ref.Category != "" && item.Category == ref.Category
			entry.priceGap = item.Price.Sub(ref.Price).Abs()
		}
		pool = append(pool, entry)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.sameCategory != b.sameCategory {
			return a.sameCategory
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if cmp := a.priceGap.Cmp(b.priceGap); cmp != 0 {
			return cmp < 0
		}
		if a.item.Preferred != b.item.Preferred {
			return a.item.Preferred
		}
		return a.item.Name < b.item.Name
	})

	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]domain.Substitute, 0, len(pool))
	for _, p := range pool {
		out = append(out, domain.Substitute{
			ItemID: p.item.ID,
			Name:   p.item.Name,
			Brand:  p.item.Brand,
			Unit:   p.item.Unit,
			Price:  p.item.Price,
			Score:  p.score,
		})
	}
	return out
}
