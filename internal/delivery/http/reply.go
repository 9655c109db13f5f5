package http

import (
	"fmt"
	"strings"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// composeReply turns a resolution result into the WhatsApp confirmation text.
// The format mirrors what customers expect from a shopkeeper's chat: billed
// lines first, then stock problems and unclear items, then the totals.
func composeReply(customerName, storeName string, result *domain.OrderResolutionResult) string {
	if customerName == "" {
		customerName = "ji"
	}

	if len(result.Lines) == 0 {
		return fmt.Sprintf("Sorry %s, I couldn't understand the order. Please specify items and quantities.\n\nExample: '2 kg atta, 1 litre milk'", customerName)
	}

	var billed, problems []string
	for _, line := range result.Lines {
		switch line.Status {
		case domain.StatusMatched:
			billed = append(billed, fmt.Sprintf("%d. %s %s %s - ₹%s",
				len(billed)+1, trimQty(line.FulfillableQty), line.Unit, line.Item.Name, line.Amount.StringFixed(2)))

		case domain.StatusPartiallyAvailable:
			billed = append(billed, fmt.Sprintf("%d. %s %s %s - ₹%s (only %s of %s available)",
				len(billed)+1, trimQty(line.FulfillableQty), line.Unit, line.Item.Name, line.Amount.StringFixed(2),
				trimQty(line.FulfillableQty), trimQty(line.RequestedQty)))

		case domain.StatusOutOfStock:
			p := fmt.Sprintf("%s is out of stock", line.Item.Name)
			if subs := substituteNames(line.Substitutes); subs != "" {
				p += " (try: " + subs + ")"
			}
			problems = append(problems, p)

		case domain.StatusAmbiguous:
			var names []string
			for _, c := range line.Candidates {
				names = append(names, c.Name)
			}
			problems = append(problems, fmt.Sprintf("not sure about %q, did you mean: %s?", line.Fragment.Phrase, strings.Join(names, ", ")))

		case domain.StatusUnmatched:
			p := fmt.Sprintf("couldn't find %q", line.Fragment.Phrase)
			if subs := substituteNames(line.Substitutes); subs != "" {
				p += " (we have: " + subs + ")"
			}
			problems = append(problems, p)
		}
	}

	var b strings.Builder
	if len(billed) > 0 {
		fmt.Fprintf(&b, "Thank you %s! Your order:\n", customerName)
		b.WriteString(strings.Join(billed, "\n"))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Sorry %s, nothing from your order could be billed.\n", customerName)
	}

	if len(problems) > 0 {
		b.WriteString("\nNote:\n")
		for _, p := range problems {
			b.WriteString("- " + p + "\n")
		}
	}

	if len(billed) > 0 {
		fmt.Fprintf(&b, "\nSubtotal: ₹%s\n", result.Bill.Subtotal.StringFixed(2))
		for _, bracket := range result.Bill.TaxBreakup {
			fmt.Fprintf(&b, "GST %d%% (CGST ₹%s + SGST ₹%s): ₹%s\n",
				bracket.RatePercent, bracket.CGST.StringFixed(2), bracket.SGST.StringFixed(2), bracket.Total.StringFixed(2))
		}
		fmt.Fprintf(&b, "Total: ₹%s\n", result.Bill.GrandTotal.StringFixed(2))
		b.WriteString("\nYour order is confirmed! ✅")
	}

	if storeName != "" {
		b.WriteString("\n- " + storeName)
	}
	return b.String()
}

func substituteNames(subs []domain.Substitute) string {
	var names []string
	for _, s := range subs {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

// trimQty renders quantities without trailing zeros: 2, 0.5, 1.25.
func trimQty(q float64) string {
	s := fmt.Sprintf("%.3f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
