package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"feedd/observability"
)

// ErrInsufficientFeeds reports that too few sources produced usable quotes
// to form an aggregate.
var ErrInsufficientFeeds = errors.New("oracle: insufficient feeds")

// Aggregator queries every configured source for one pair and reduces the
// surviving quotes to their median. It supplies the single price value a
// publish cycle consumes.
type Aggregator struct {
	sources  []Source
	base     string
	quote    string
	minFeeds int
	maxAge   time.Duration
	log      *slog.Logger
}

// NewAggregator validates the source list and pair.
func NewAggregator(sources []Source, base, quote string, minFeeds int, maxAge time.Duration, logger *slog.Logger) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, errors.New("oracle: at least one source required")
	}
	baseSym := normaliseSymbol(base)
	quoteSym := normaliseSymbol(quote)
	if baseSym == "" || quoteSym == "" {
		return nil, errors.New("oracle: base and quote symbols required")
	}
	if minFeeds <= 0 {
		minFeeds = 1
	}
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sources:  append([]Source{}, sources...),
		base:     baseSym,
		quote:    quoteSym,
		minFeeds: minFeeds,
		maxAge:   maxAge,
		log:      logger,
	}, nil
}

// GetPrice fetches one quote from every source, drops invalid, stale, or
// future-dated observations, and returns the median of the survivors.
func (a *Aggregator) GetPrice(ctx context.Context) (float64, error) {
	now := time.Now()
	rates := make([]*big.Rat, 0, len(a.sources))
	for _, src := range a.sources {
		quote, err := src.Fetch(ctx, a.base, a.quote)
		if err != nil {
			a.log.Warn("price source failed", "source", src.Name(), "pair", a.pair(), "error", err)
			continue
		}
		if quote.Rate == nil || quote.Rate.Sign() <= 0 {
			a.log.Warn("price source returned invalid rate", "source", src.Name())
			continue
		}
		if quote.Timestamp.After(now.Add(5 * time.Second)) {
			a.log.Warn("price source produced future timestamp", "source", src.Name())
			continue
		}
		if quote.Timestamp.Before(now.Add(-a.maxAge)) {
			a.log.Warn("price source quote expired", "source", src.Name(), "age", now.Sub(quote.Timestamp))
			continue
		}
		rates = append(rates, quote.Rate)
	}
	if len(rates) < a.minFeeds {
		return 0, fmt.Errorf("%w: %d of %d required for %s", ErrInsufficientFeeds, len(rates), a.minFeeds, a.pair())
	}
	median := computeMedian(rates)
	price, _ := median.Float64()
	observability.Feed().PriceQuote.WithLabelValues(a.pair()).Set(price)
	return price, nil
}

func (a *Aggregator) pair() string {
	return a.base + "/" + a.quote
}

func computeMedian(rates []*big.Rat) *big.Rat {
	sorted := make([]*big.Rat, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cmp(sorted[j]) < 0
	})
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return new(big.Rat).Set(sorted[mid])
	}
	sum := new(big.Rat).Add(sorted[mid-1], sorted[mid])
	return sum.Quo(sum, big.NewRat(2, 1))
}
