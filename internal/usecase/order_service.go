package usecase

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// OrderServiceConfig holds configuration for the resolution pipeline.
type OrderServiceConfig struct {
	Resolver        ResolverConfig
	SubstituteLimit int
	CacheTTL        time.Duration
	Debug           bool
}

// OrderService is the order resolution pipeline: tokenize -> resolve ->
// availability -> bill. It is stateless per call and side-effect free; the
// only optional state is a result cache keyed by (text, snapshot version),
// which is safe because resolution is a pure function of those two inputs.
type OrderService struct {
	resolver *Resolver
	cache    domain.ResultCache
	cacheTTL time.Duration
	subLimit int
	debug    bool
}

// NewOrderService creates the pipeline. cache may be nil to disable result
// caching.
func NewOrderService(cache domain.ResultCache, cfg OrderServiceConfig) *OrderService {
	subLimit := cfg.SubstituteLimit
	if subLimit <= 0 {
		subLimit = DefaultSubstituteLimit
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}
	return &OrderService{
		resolver: NewResolver(cfg.Resolver),
		cache:    cache,
		cacheTTL: cacheTTL,
		subLimit: subLimit,
		debug:    cfg.Debug,
	}
}

// Resolver exposes the configured resolver for callers that need phrase-level
// scoring (e.g. interactive disambiguation).
func (s *OrderService) Resolver() *Resolver { return s.resolver }

// ResolveOrder turns raw order text into a structured, priced result against
// the given catalog snapshot. It is deterministic: identical (text, snapshot)
// inputs produce identical results. Empty or unparseable text yields an
// empty NoMatch result, not an error; a missing snapshot is a configuration
// error and fails fast.
func (s *OrderService) ResolveOrder(ctx context.Context, text string, snap *domain.Snapshot) (*domain.OrderResolutionResult, error) {
	if snap == nil {
		return nil, domain.ErrNoCatalog
	}

	cacheKey := resultCacheKey(text, snap.Version())
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	fragments := Tokenize(text)
	lines := make([]domain.ResolvedLine, 0, len(fragments))
	for _, frag := range fragments {
		lines = append(lines, s.resolveFragment(frag, snap))
	}

	bill, err := Bill(lines)
	if err != nil {
		return nil, err
	}

	result := &domain.OrderResolutionResult{
		Lines:           lines,
		Bill:            bill,
		Status:          OverallStatus(lines),
		SnapshotVersion: snap.Version(),
	}

	if s.debug {
		log.Debug().
			Str("status", string(result.Status)).
			Int("lines", len(result.Lines)).
			Str("total", result.Bill.GrandTotal.String()).
			Msg("order resolved")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("result cache set failed")
		}
	}
	return result, nil
}

// ResolveLedger feeds OCR-extracted ledger lines through the same pipeline
// as a chat message: one raw string per recognized line, joined on newlines.
func (s *OrderService) ResolveLedger(ctx context.Context, ocrLines []string, snap *domain.Snapshot) (*domain.OrderResolutionResult, error) {
	text := ""
	for i, line := range ocrLines {
		if i > 0 {
			text += "\n"
		}
		text += line
	}
	return s.ResolveOrder(ctx, text, snap)
}

// resolveFragment resolves one fragment into an immutable line.
func (s *OrderService) resolveFragment(frag domain.Fragment, snap *domain.Snapshot) domain.ResolvedLine {
	line := domain.ResolvedLine{
		Fragment:     frag,
		Unit:         frag.Unit,
		RequestedQty: frag.Qty,
	}

	candidates := s.resolver.Resolve(frag.Phrase, snap)
	if len(candidates) == 0 {
		line.Status = domain.StatusUnmatched
		line.Substitutes = s.resolver.Substitutes(snap, frag.Phrase, nil, s.subLimit)
		return line
	}

	top := candidates[0]
	line.Confidence = top.Score

	switch s.resolver.StatusFor(top.Score) {
	case domain.StatusAmbiguous:
		// Surface candidates for human disambiguation; nothing auto-selected.
		line.Status = domain.StatusAmbiguous
		line.Candidates = candidates
		return line

	case domain.StatusUnmatched:
		line.Status = domain.StatusUnmatched
		line.Substitutes = s.resolver.Substitutes(snap, frag.Phrase, nil, s.subLimit)
		return line
	}

	item, _ := snap.ByID(top.ItemID)
	line.Item = item
	line.Unit = item.Unit
	if frag.UnitSet {
		if converted, ok := domain.ConvertQty(frag.Qty, frag.Unit, item.Unit); ok {
			line.RequestedQty = converted
		}
	}

	fulfillable, status := CheckAvailability(item, line.RequestedQty)
	line.Status = status
	line.FulfillableQty = fulfillable
	if status == domain.StatusOutOfStock {
		line.Substitutes = s.resolver.Substitutes(snap, frag.Phrase, item, s.subLimit)
	}

	if s.debug {
		log.Debug().
			Str("phrase", frag.Phrase).
			Str("item", item.Name).
			Float64("score", top.Score).
			Str("status", string(status)).
			Msg("fragment resolved")
	}
	return line
}

// resultCacheKey hashes the raw text so arbitrary customer input cannot
// produce unbounded keys, and pins the snapshot version so cached results
// never survive a catalog change.
func resultCacheKey(text string, version int64) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("order:%x:%d", sum[:8], version)
}
