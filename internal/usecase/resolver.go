package usecase

import (
	"sort"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// Scoring policy constants. Blend weight and thresholds are configuration;
// these are the defaults applied by NewResolver when a value is unset.
const (
	// DefaultBlendWeight is the share of the blended score contributed by
	// token-set similarity; the remainder comes from edit-distance similarity.
	DefaultBlendWeight = 0.5

	// DefaultHighThreshold auto-accepts a candidate as Matched.
	DefaultHighThreshold = 0.85

	// DefaultLowThreshold separates Ambiguous from Unmatched.
	DefaultLowThreshold = 0.45

	// fuzzyTokenCredit is the weight a near-miss token match earns compared
	// to an exact token match.
	fuzzyTokenCredit = 0.8

	// fuzzyTokenMinLen gates fuzzy token matching to tokens long enough to
	// avoid false positives on short words.
	fuzzyTokenMinLen = 4

	// maxCandidates caps the candidate list surfaced per phrase.
	maxCandidates = 5
)

// ResolverConfig holds the tunable matching policy.
type ResolverConfig struct {
	HighThreshold float64
	LowThreshold  float64
	BlendWeight   float64
}

// Resolver maps noisy item phrases to catalog entries using a blend of
// token-set similarity (robust to word order and single-word alias swaps)
// and Damerau-Levenshtein similarity (robust to typos and OCR corruption).
type Resolver struct {
	high  float64
	low   float64
	blend float64
}

// NewResolver creates a resolver, falling back to the default policy for
// unset or out-of-range values.
func NewResolver(cfg ResolverConfig) *Resolver {
	high := cfg.HighThreshold
	if high <= 0 || high > 1 {
		high = DefaultHighThreshold
	}
	low := cfg.LowThreshold
	if low <= 0 || low >= high {
		low = DefaultLowThreshold
	}
	blend := cfg.BlendWeight
	if blend <= 0 || blend >= 1 {
		blend = DefaultBlendWeight
	}
	return &Resolver{high: high, low: low, blend: blend}
}

// StatusFor maps a similarity score onto the line status thresholds.
func (r *Resolver) StatusFor(score float64) domain.LineStatus {
	switch {
	case score >= r.high:
		return domain.StatusMatched
	case score >= r.low:
		return domain.StatusAmbiguous
	default:
		return domain.StatusUnmatched
	}
}

// Resolve scores phrase against every plausible catalog entry and returns
// candidates in descending score order. An exact normalized name or alias
// hit short-circuits with score 1.0. Ordering is fully deterministic: score,
// then preferred brand, then stock, then canonical name.
func (r *Resolver) Resolve(phrase string, snap *domain.Snapshot) []domain.Candidate {
	norm := domain.Normalize(phrase)
	if norm == "" || snap == nil {
		return nil
	}

	if item, ok := snap.ByAlias(norm); ok {
		return []domain.Candidate{{ItemID: item.ID, Name: item.Name, Score: 1.0}}
	}

	tokens := domain.TokenizeName(phrase)
	ids := snap.CandidateIDs(tokens)
	scoreAll := len(ids) == 0 // heavy corruption: no token overlap anywhere

	type scored struct {
		item  *domain.CatalogItem
		score float64
	}
	out := make([]scored, 0, len(ids))
	for _, it := range snap.Items() {
		item, _ := snap.ByID(it.ID)
		if !scoreAll {
			if _, hit := ids[item.ID]; !hit {
				continue
			}
		}
		out = append(out, scored{item: item, score: r.itemScore(norm, tokens, item)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.item.Preferred != b.item.Preferred {
			return a.item.Preferred
		}
		if a.item.Stock != b.item.Stock {
			return a.item.Stock > b.item.Stock
		}
		return a.item.Name < b.item.Name
	})

	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	candidates := make([]domain.Candidate, 0, len(out))
	for _, s := range out {
		candidates = append(candidates, domain.Candidate{ItemID: s.item.ID, Name: s.item.Name, Score: s.score})
	}
	return candidates
}

// itemScore is the best blended score of the phrase against the item's
// canonical name and every alias.
func (r *Resolver) itemScore(norm string, tokens []string, item *domain.CatalogItem) float64 {
	best := r.blended(norm, tokens, item.Name)
	for _, alias := range item.Aliases {
		if s := r.blended(norm, tokens, alias); s > best {
			best = s
		}
	}
	return best
}

func (r *Resolver) blended(norm string, tokens []string, target string) float64 {
	targetNorm := domain.Normalize(target)
	if targetNorm == "" {
		return 0
	}
	if norm == targetNorm {
		return 1
	}
	ts := tokenSetSimilarity(tokens, domain.TokenizeName(target))
	edit := editSimilarity(norm, targetNorm)
	return r.blend*ts + (1-r.blend)*edit
}

// tokenSetSimilarity is an order-insensitive overlap of word tokens. Each
// query token earns full credit for an exact counterpart and fuzzyTokenCredit
// for a counterpart within edit distance 1; credits are normalized by the
// larger token count so extra words on either side dilute the score.
func tokenSetSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	credit := 0.0
	for _, ta := range a {
		bestIdx, bestCredit := -1, 0.0
		for i, tb := range b {
			if used[i] {
				continue
			}
			if ta == tb {
				bestIdx, bestCredit = i, 1.0
				break
			}
			if bestCredit < fuzzyTokenCredit && fuzzyTokenMatch(ta, tb) {
				bestIdx, bestCredit = i, fuzzyTokenCredit
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			credit += bestCredit
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return credit / float64(denom)
}

// fuzzyTokenMatch reports whether two tokens are one edit apart, gated on
// length so short words cannot false-positive into each other.
func fuzzyTokenMatch(a, b string) bool {
	if len([]rune(a)) < fuzzyTokenMinLen || len([]rune(b)) < fuzzyTokenMinLen {
		return false
	}
	diff := len([]rune(a)) - len([]rune(b))
	if diff < -1 || diff > 1 {
		return false
	}
	return damerauLevenshtein(a, b) <= 1
}

// editSimilarity is normalized Damerau-Levenshtein similarity in [0,1] over
// the whole normalized strings.
func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := damerauLevenshtein(a, b)
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(dist)/float64(maxLen)
}

// damerauLevenshtein counts insertions, deletions, substitutions and
// adjacent transpositions. Transpositions matter for transliteration noise
// ("doodh" vs "dodoh") and OCR swaps.
func damerauLevenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	al, bl := len(ra), len(rb)

	dp := make([][]int, al+1)
	for i := 0; i <= al; i++ {
		dp[i] = make([]int, bl+1)
		dp[i][0] = i
	}
	for j := 0; j <= bl; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= al; i++ {
		for j := 1; j <= bl; j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			d := dp[i-1][j] + 1
			if v := dp[i][j-1] + 1; v < d {
				d = v
			}
			if v := dp[i-1][j-1] + cost; v < d {
				d = v
			}
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if v := dp[i-2][j-2] + 1; v < d {
					d = v
				}
			}
			dp[i][j] = d
		}
	}
	return dp[al][bl]
}
