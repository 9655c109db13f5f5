package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds a single line's quantity. Anything above it is a
// malformed or hostile input and billing refuses it instead of producing an
// absurd total.
const MaxLineQuantity = 1e6

// moneyPlaces is the currency precision; all published amounts round
// half-up at this digit, exactly once.
const moneyPlaces = 2

var two = decimal.NewFromInt(2)

// Bill prices every line with a positive fulfillable quantity and fills in
// the aggregate summary. Line amounts are computed in exact decimal
// arithmetic; tax accumulates per GST bracket across all lines and each
// bracket's CGST/SGST half is rounded once, on the bracket sum, so per-line
// rounding drift cannot build up. Lines[i].Amount is set as a side effect;
// zero-fulfillable lines stay visible with a zero amount.
func Bill(lines []domain.ResolvedLine) (domain.BillSummary, error) {
	subtotal := decimal.Zero
	taxable := make(map[int]decimal.Decimal)

	for i := range lines {
		line := &lines[i]
		line.Amount = decimal.Zero

		if line.Item == nil || line.FulfillableQty <= 0 {
			continue
		}
		if line.RequestedQty > MaxLineQuantity || line.FulfillableQty > MaxLineQuantity ||
			math.IsNaN(line.RequestedQty) || math.IsInf(line.RequestedQty, 0) {
			return domain.BillSummary{}, fmt.Errorf("%w: line %q quantity %v",
				domain.ErrQuantityOverflow, line.Fragment.Raw, line.RequestedQty)
		}

		amount := line.Item.Price.Mul(decimal.NewFromFloat(line.FulfillableQty))
		line.Amount = amount.Round(moneyPlaces)
		subtotal = subtotal.Add(amount)
		taxable[line.Item.GSTRate] = taxable[line.Item.GSTRate].Add(amount)
	}

	rates := make([]int, 0, len(taxable))
	for rate := range taxable {
		rates = append(rates, rate)
	}
	sort.Ints(rates)

	summary := domain.BillSummary{
		Subtotal: subtotal.Round(moneyPlaces),
		TotalTax: decimal.Zero,
	}
	for _, rate := range rates {
		bracket := domain.TaxBracket{
			RatePercent: rate,
			Taxable:     taxable[rate].Round(moneyPlaces),
			CGST:        decimal.Zero,
			SGST:        decimal.Zero,
			Total:       decimal.Zero,
		}
		if rate > 0 {
			// Each co-equal half is rate/2 percent of the bracket sum,
			// rounded here and nowhere else.
			half := taxable[rate].Mul(decimal.NewFromInt(int64(rate))).
				Div(decimal.NewFromInt(200)).
				Round(moneyPlaces)
			bracket.CGST = half
			bracket.SGST = half
			bracket.Total = half.Mul(two)
		}
		summary.TotalTax = summary.TotalTax.Add(bracket.Total)
		summary.TaxBreakup = append(summary.TaxBreakup, bracket)
	}

	summary.GrandTotal = summary.Subtotal.Add(summary.TotalTax)
	return summary, nil
}

// OverallStatus folds line statuses into the order-level status: AllMatched
// only when every line matched in full; NoMatch when nothing is sellable at
// all; PartialMatch otherwise.
func OverallStatus(lines []domain.ResolvedLine) domain.OrderStatus {
	if len(lines) == 0 {
		return domain.OrderNoMatch
	}
	allMatched := true
	noneSellable := true
	for _, line := range lines {
		if line.Status != domain.StatusMatched {
			allMatched = false
		}
		if line.Status != domain.StatusUnmatched && line.Status != domain.StatusOutOfStock {
			noneSellable = false
		}
	}
	switch {
	case allMatched:
		return domain.OrderAllMatched
	case noneSellable:
		return domain.OrderNoMatch
	default:
		return domain.OrderPartialMatch
	}
}
