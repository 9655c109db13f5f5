// Package catalogio parses bulk catalog import files (.csv and .xlsx) into
// catalog items. Column headers are matched case-insensitively; aliases are
// pipe-separated within a single cell.
package catalogio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	excelize "github.com/xuri/excelize/v2"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// ReadItems picks a parser by file extension and returns the parsed items.
func ReadItems(r io.Reader, filename string) ([]domain.CatalogItem, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported catalog file %q", domain.ErrInvalidRequest, filename)
	}
}

func readXLSX(r io.Reader) ([]domain.CatalogItem, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return rowsToItems(rows)
}

func readCSV(r io.Reader) ([]domain.CatalogItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		rows = append(rows, rec)
	}
	return rowsToItems(rows)
}

func rowsToItems(rows [][]string) ([]domain.CatalogItem, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: catalog file is empty", domain.ErrInvalidRequest)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "unit", "price", "gst"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidRequest, required)
		}
	}

	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var items []domain.CatalogItem
	for rowNo, rec := range rows[1:] {
		empty := true
		for _, v := range rec {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		item, err := recordToItem(rec, cell)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNo+2, err)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: catalog file has no item rows", domain.ErrInvalidRequest)
	}
	return items, nil
}

func recordToItem(rec []string, cell func([]string, string) string) (domain.CatalogItem, error) {
	var item domain.CatalogItem

	item.Name = cell(rec, "name")
	if item.Name == "" {
		return item, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}

	if aliases := cell(rec, "aliases"); aliases != "" {
		for _, a := range strings.Split(aliases, "|") {
			if a = strings.TrimSpace(a); a != "" {
				item.Aliases = append(item.Aliases, a)
			}
		}
	}

	item.Brand = cell(rec, "brand")
	item.Category = cell(rec, "category")

	switch strings.ToLower(cell(rec, "preferred")) {
	case "1", "true", "yes", "y":
		item.Preferred = true
	}

	item.Unit = domain.Unit(strings.ToLower(cell(rec, "unit")))
	if !item.Unit.Valid() {
		return item, fmt.Errorf("%w: unknown unit %q", domain.ErrInvalidRequest, cell(rec, "unit"))
	}

	price, err := decimal.NewFromString(cell(rec, "price"))
	if err != nil {
		return item, fmt.Errorf("%w: bad price %q", domain.ErrInvalidRequest, cell(rec, "price"))
	}
	item.Price = price

	gst, err := strconv.Atoi(cell(rec, "gst"))
	if err != nil || !domain.ValidGSTRate(gst) {
		return item, fmt.Errorf("%w: bad gst rate %q", domain.ErrInvalidRequest, cell(rec, "gst"))
	}
	item.GSTRate = gst

	if raw := cell(rec, "stock"); raw != "" {
		stock, err := strconv.ParseFloat(raw, 64)
		if err != nil || stock < 0 {
			return item, fmt.Errorf("%w: bad stock %q", domain.ErrInvalidRequest, raw)
		}
		item.Stock = stock
	}

	return item, nil
}
