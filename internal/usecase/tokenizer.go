package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// Compiled once at package level
var (
	// Splits a raw message on separators that end an item mention.
	separatorRegex = regexp.MustCompile(`[,;|/&+\n\r\t]+`)

	// "2,5" -> "2.5", applied before separators turn commas into spaces.
	decimalCommaRegex = regexp.MustCompile(`(\d),(\d)`)

	// A quantity token: a number, optionally with a unit spelling fused to it
	// ("2kg", "500gm", "1.5l"). Decimal comma is tolerated.
	quantityRegex = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)(\p{L}*)$`)
)

// unitSpellings is the closed mapping from every recognized unit spelling
// (English, Hinglish and Devanagari, plus common abbreviations) to its
// canonical unit. Spellings outside the closed unit set fold into the
// nearest count unit (a bottle sells as a piece, a box as a packet).
var unitSpellings = map[string]domain.Unit{
	// weight
	"kg": domain.UnitKg, "kilo": domain.UnitKg, "kilos": domain.UnitKg,
	"kilogram": domain.UnitKg, "kilograms": domain.UnitKg, "किलो": domain.UnitKg, "keelo": domain.UnitKg,
	"g": domain.UnitGram, "gm": domain.UnitGram, "gms": domain.UnitGram,
	"gram": domain.UnitGram, "grams": domain.UnitGram, "ग्राम": domain.UnitGram,
	// volume
	"l": domain.UnitLitre, "ltr": domain.UnitLitre, "litre": domain.UnitLitre,
	"liter": domain.UnitLitre, "litres": domain.UnitLitre, "liters": domain.UnitLitre, "लीटर": domain.UnitLitre,
	"ml": domain.UnitMl, "millilitre": domain.UnitMl, "milliliter": domain.UnitMl,
	// count
	"piece": domain.UnitPiece, "pieces": domain.UnitPiece, "pc": domain.UnitPiece,
	"pcs": domain.UnitPiece, "पीस": domain.UnitPiece,
	"bottle": domain.UnitPiece, "bottles": domain.UnitPiece, "बोतल": domain.UnitPiece,
	"dozen": domain.UnitPiece, "दर्जन": domain.UnitPiece,
	"packet": domain.UnitPacket, "packets": domain.UnitPacket, "pkt": domain.UnitPacket,
	"pkts": domain.UnitPacket, "pack": domain.UnitPacket, "पैकेट": domain.UnitPacket,
	"box": domain.UnitPacket, "बॉक्स": domain.UnitPacket,
}

// connectorWords are filler/connector tokens customers put between item
// mentions ("2 kg atta aur 1 litre doodh chahiye"). They carry no item
// signal and are dropped during scanning.
var connectorWords = map[string]bool{
	"aur": true, "and": true, "or": true, "bhi": true, "also": true,
	"plus": true, "with": true, "sath": true, "saath": true,
	"chahiye": true, "chaiye": true, "chahie": true, "dena": true, "dedo": true,
	"do": true, "de": true, "bhejo": true, "bhej": true, "bhejna": true,
	"ka": true, "ki": true, "ke": true, "ko": true, "ji": true,
	"mujhe": true, "hume": true, "humko": true, "mere": true, "liye": true,
	"please": true, "pls": true, "plz": true, "send": true, "give": true,
	"want": true, "need": true, "get": true, "me": true,
	"और": true, "चाहिए": true, "भेजो": true, "दो": true,
}

// Tokenize splits free-form, possibly mixed-language order text into an
// ordered sequence of (quantity, unit, item-phrase) fragments.
//
// The scan runs left to right: a numeric token (with an optionally fused
// unit suffix) starts a new fragment, an immediately following unit spelling
// is consumed as its unit, and the remaining words up to the next numeric
// token become the item phrase. Text before any number becomes a fragment
// with quantity 1. A unit word with no preceding number stays in the phrase.
// Tokenize is pure and never fails; malformed input degrades to a single
// whole-text phrase.
func Tokenize(text string) []domain.Fragment {
	text = decimalCommaRegex.ReplaceAllString(text, "$1.$2")
	words := strings.Fields(separatorRegex.ReplaceAllString(text, " "))
	if len(words) == 0 {
		return nil
	}

	var fragments []domain.Fragment
	var cur *fragmentBuilder

	flush := func() {
		if cur == nil {
			return
		}
		if frag, ok := cur.build(); ok {
			fragments = append(fragments, frag)
		}
		cur = nil
	}

	for i := 0; i < len(words); i++ {
		word := words[i]

		if qty, suffix, ok := parseQuantity(word); ok {
			flush()
			cur = &fragmentBuilder{qty: qty, unit: domain.UnitPiece}
			cur.raw = append(cur.raw, word)

			if suffix != "" {
				// Fused unit ("2kg") or a word glued to the number.
				if unit, known := unitSpellings[suffix]; known {
					cur.unit, cur.unitSet = unit, true
				} else {
					cur.phrase = append(cur.phrase, suffix)
				}
				continue
			}
			if i+1 < len(words) {
				if unit, known := unitSpellings[domain.Normalize(words[i+1])]; known {
					cur.unit, cur.unitSet = unit, true
					cur.raw = append(cur.raw, words[i+1])
					i++
				}
			}
			continue
		}

		norm := domain.Normalize(word)
		if norm == "" || connectorWords[norm] {
			continue
		}
		if cur == nil {
			// No leading number: quantity defaults to 1, unit to piece.
			cur = &fragmentBuilder{qty: 1, unit: domain.UnitPiece}
		}
		cur.phrase = append(cur.phrase, norm)
		cur.raw = append(cur.raw, word)
	}
	flush()

	return fragments
}

type fragmentBuilder struct {
	qty     float64
	unit    domain.Unit
	unitSet bool
	phrase  []string
	raw     []string
}

// build drops fragments that ended up with no item phrase at all (e.g. a
// trailing bare number).
func (b *fragmentBuilder) build() (domain.Fragment, bool) {
	if len(b.phrase) == 0 {
		return domain.Fragment{}, false
	}
	return domain.Fragment{
		Raw:     strings.Join(b.raw, " "),
		Qty:     b.qty,
		Unit:    b.unit,
		UnitSet: b.unitSet,
		Phrase:  strings.Join(b.phrase, " "),
	}, true
}

// parseQuantity reports whether word starts with a numeric quantity, and
// returns the parsed number plus any normalized non-numeric suffix fused to it.
func parseQuantity(word string) (float64, string, bool) {
	m := quantityRegex.FindStringSubmatch(strings.ToLower(word))
	if m == nil {
		return 0, "", false
	}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || qty < 0 {
		return 0, "", false
	}
	return qty, domain.Normalize(m[2]), true
}
