package domain

import "github.com/shopspring/decimal"

// Fragment is one best-effort (quantity, unit, item-phrase) triple extracted
// from raw order text. It lives only for the duration of a pipeline call.
type Fragment struct {
	Raw     string  `json:"raw"`
	Qty     float64 `json:"qty"`
	Unit    Unit    `json:"unit"`
	UnitSet bool    `json:"unitSet"` // false when the unit was defaulted, not written by the customer
	Phrase  string  `json:"phrase"`
}

// LineStatus is the closed set of outcomes for one resolved order line.
type LineStatus string

const (
	StatusMatched            LineStatus = "MATCHED"
	StatusAmbiguous          LineStatus = "AMBIGUOUS"
	StatusUnmatched          LineStatus = "UNMATCHED"
	StatusPartiallyAvailable LineStatus = "PARTIALLY_AVAILABLE"
	StatusOutOfStock         LineStatus = "OUT_OF_STOCK"
)

// OrderStatus summarizes a whole resolution result.
type OrderStatus string

const (
	OrderAllMatched   OrderStatus = "ALL_MATCHED"
	OrderPartialMatch OrderStatus = "PARTIAL_MATCH"
	OrderNoMatch      OrderStatus = "NO_MATCH"
)

// Candidate is one scored catalog match for a phrase.
type Candidate struct {
	ItemID int64   `json:"itemId"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// Substitute is a suggested replacement for an unmatched or out-of-stock
// line. Substitutes annotate the result for the reply; they are never billed.
type Substitute struct {
	ItemID int64           `json:"itemId"`
	Name   string          `json:"name"`
	Brand  string          `json:"brand,omitempty"`
	Unit   Unit            `json:"unit"`
	Price  decimal.Decimal `json:"price"`
	Score  float64         `json:"score"`
}

// ResolvedLine is one line of a resolution result. Item is set only for
// Matched, PartiallyAvailable and OutOfStock lines; Candidates only for
// Ambiguous lines; Substitutes only for Unmatched and OutOfStock lines.
// Lines are immutable once produced.
type ResolvedLine struct {
	Fragment       Fragment        `json:"fragment"`
	Status         LineStatus      `json:"status"`
	Item           *CatalogItem    `json:"item,omitempty"`
	Unit           Unit            `json:"unit"`
	RequestedQty   float64         `json:"requestedQty"`
	FulfillableQty float64         `json:"fulfillableQty"`
	Confidence     float64         `json:"confidence"`
	Candidates     []Candidate     `json:"candidates,omitempty"`
	Substitutes    []Substitute    `json:"substitutes,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
}

// TaxBracket is the accumulated tax for one GST rate across all lines.
// CGST and SGST are the two co-equal halves of the bracket tax.
type TaxBracket struct {
	RatePercent int             `json:"ratePercent"`
	Taxable     decimal.Decimal `json:"taxable"`
	CGST        decimal.Decimal `json:"cgst"`
	SGST        decimal.Decimal `json:"sgst"`
	Total       decimal.Decimal `json:"total"`
}

// BillSummary is the aggregate monetary result of an order resolution.
// All amounts are exact decimals rounded per the billing policy.
type BillSummary struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxBreakup []TaxBracket    `json:"taxBreakup,omitempty"`
	TotalTax   decimal.Decimal `json:"totalTax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// OrderResolutionResult is the full outcome of one pipeline call: the
// resolved lines in input order, the bill over their fulfillable portions,
// and the overall status. The engine holds no result history.
type OrderResolutionResult struct {
	Lines           []ResolvedLine `json:"lines"`
	Bill            BillSummary    `json:"bill"`
	Status          OrderStatus    `json:"status"`
	SnapshotVersion int64          `json:"snapshotVersion"`
}
