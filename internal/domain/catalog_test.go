package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func item(id int64, name string, aliases ...string) CatalogItem {
	return CatalogItem{
		ID:      id,
		Name:    name,
		Aliases: aliases,
		Unit:    UnitKg,
		Price:   decimal.NewFromInt(10),
		GSTRate: 5,
		Stock:   1,
	}
}

func TestNewSnapshot(t *testing.T) {
	t.Run("indexes names and aliases", func(t *testing.T) {
		snap, err := NewSnapshot(1, []CatalogItem{
			item(1, "Sugar", "chini", "cheeni"),
			item(2, "Atta", "aata"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, ok := snap.ByAlias("chini")
		if !ok || got.Name != "Sugar" {
			t.Errorf("ByAlias(chini) = %v, %v; want Sugar", got, ok)
		}
		if _, ok := snap.ByAlias("atta"); !ok {
			t.Error("canonical name should resolve as an alias")
		}
		if snap.Version() != 1 {
			t.Errorf("Version() = %d, want 1", snap.Version())
		}
	})

	t.Run("rejects alias collision across items", func(t *testing.T) {
		_, err := NewSnapshot(1, []CatalogItem{
			item(1, "Sugar", "chini"),
			item(2, "Jaggery", "chini"),
		})
		if !errors.Is(err, ErrAliasCollision) {
			t.Errorf("error = %v, want ErrAliasCollision", err)
		}
	})

	t.Run("alias collision check is case and diacritic insensitive", func(t *testing.T) {
		_, err := NewSnapshot(1, []CatalogItem{
			item(1, "Sugar", "Chīni"),
			item(2, "Jaggery", "chini"),
		})
		if !errors.Is(err, ErrAliasCollision) {
			t.Errorf("error = %v, want ErrAliasCollision", err)
		}
	})

	t.Run("same alias repeated on one item is fine", func(t *testing.T) {
		_, err := NewSnapshot(1, []CatalogItem{item(1, "Sugar", "sugar", "chini")})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects bad unit, gst rate and negative stock", func(t *testing.T) {
		bad := item(1, "Sugar")
		bad.Unit = "tonne"
		if _, err := NewSnapshot(1, []CatalogItem{bad}); !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("unknown unit: error = %v, want ErrInvalidCatalog", err)
		}

		bad = item(1, "Sugar")
		bad.GSTRate = 28
		if _, err := NewSnapshot(1, []CatalogItem{bad}); !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("bad gst: error = %v, want ErrInvalidCatalog", err)
		}

		bad = item(1, "Sugar")
		bad.Stock = -1
		if _, err := NewSnapshot(1, []CatalogItem{bad}); !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("negative stock: error = %v, want ErrInvalidCatalog", err)
		}
	})
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Sugar ", "sugar"},
		{"Chīni", "chini"},
		{"LUX  Soap!!", "lux soap"},
		{"dal-makhani", "dal makhani"},
		{"चीनी", "चीनी"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConvertQty(t *testing.T) {
	cases := []struct {
		qty      float64
		from, to Unit
		want     float64
		ok       bool
	}{
		{500, UnitGram, UnitKg, 0.5, true},
		{2, UnitKg, UnitGram, 2000, true},
		{250, UnitMl, UnitLitre, 0.25, true},
		{1.5, UnitLitre, UnitMl, 1500, true},
		{3, UnitPiece, UnitPiece, 3, true},
		{3, UnitPacket, UnitPiece, 3, true},
		{2, UnitLitre, UnitKg, 2, false},
	}
	for _, tc := range cases {
		got, ok := ConvertQty(tc.qty, tc.from, tc.to)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ConvertQty(%v, %s, %s) = %v, %v; want %v, %v",
				tc.qty, tc.from, tc.to, got, ok, tc.want, tc.ok)
		}
	}
}
