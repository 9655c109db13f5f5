package domain

import "github.com/shopspring/decimal"

// Unit is the closed set of measurement units a catalog item can be sold in.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitGram   Unit = "g"
	UnitLitre  Unit = "l"
	UnitMl     Unit = "ml"
	UnitPiece  Unit = "piece"
	UnitPacket Unit = "packet"
)

// UnitFamily groups units that measure the same physical quantity.
type UnitFamily string

const (
	FamilyWeight UnitFamily = "weight"
	FamilyVolume UnitFamily = "volume"
	FamilyCount  UnitFamily = "count"
)

var unitFamilies = map[Unit]UnitFamily{
	UnitKg:     FamilyWeight,
	UnitGram:   FamilyWeight,
	UnitLitre:  FamilyVolume,
	UnitMl:     FamilyVolume,
	UnitPiece:  FamilyCount,
	UnitPacket: FamilyCount,
}

// Family returns the unit family, or an empty family for an unknown unit.
func (u Unit) Family() UnitFamily {
	return unitFamilies[u]
}

// Valid reports whether u belongs to the closed unit set.
func (u Unit) Valid() bool {
	_, ok := unitFamilies[u]
	return ok
}

// ConvertQty converts a quantity between units of the same family.
// Count units (piece, packet) have no conversion factor between them, so a
// count-to-count conversion passes the quantity through unchanged.
func ConvertQty(qty float64, from, to Unit) (float64, bool) {
	if from == to {
		return qty, true
	}
	if from.Family() != to.Family() {
		return qty, false
	}
	switch {
	case from == UnitGram && to == UnitKg:
		return qty / 1000, true
	case from == UnitKg && to == UnitGram:
		return qty * 1000, true
	case from == UnitMl && to == UnitLitre:
		return qty / 1000, true
	case from == UnitLitre && to == UnitMl:
		return qty * 1000, true
	}
	// piece <-> packet
	return qty, true
}

// GSTRates is the closed set of GST brackets (percent) an item can be taxed at.
var GSTRates = []int{0, 5, 12, 18}

// ValidGSTRate reports whether rate is one of the fixed GST brackets.
func ValidGSTRate(rate int) bool {
	for _, r := range GSTRates {
		if r == rate {
			return true
		}
	}
	return false
}

// CatalogItem is one sellable item in the inventory catalog.
// Stock is kept in the item's own unit. Price is the per-unit price.
type CatalogItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Aliases   []string        `json:"aliases,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	Preferred bool            `json:"preferred"`
	Category  string          `json:"category,omitempty"`
	Unit      Unit            `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	GSTRate   int             `json:"gstRate"`
	Stock     float64         `json:"stock"`
}
