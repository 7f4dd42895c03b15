// Package publisher composes one publish cycle: fetch a price, validate it,
// obtain a ready signing handle, and broadcast the signed feed transaction
// through the failover executor.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"feedd/chain"
	"feedd/failover"
	"feedd/observability"
	"feedd/wallet"
)

// ErrNotInitialized reports that a collaborator was missing at
// construction time.
var ErrNotInitialized = errors.New("publisher: collaborators not initialized")

// ValidationError reports a price that must never be broadcast.
type ValidationError struct {
	Price float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("publisher: invalid price %v", e.Price)
}

// PriceSource supplies one quote per call.
type PriceSource interface {
	GetPrice(ctx context.Context) (float64, error)
}

// FeedClient broadcasts a signed feed transaction to one endpoint.
type FeedClient interface {
	BroadcastFeed(ctx context.Context, endpoint string, tx *chain.SignedFeedTx) (chain.TxID, error)
}

// Config carries the construction parameters for a Publisher.
type Config struct {
	// Account is the principal identifier authorized to publish.
	Account string
	// ChainID is the network identifier stamped into transactions.
	ChainID string
	// BaseSymbol/QuoteSymbol name the published pair, e.g. NHB/USD.
	BaseSymbol  string
	QuoteSymbol string
	// UnitAmount is the fixed quantity the price is quoted against.
	// Defaults to 1.
	UnitAmount *big.Rat

	Sessions *wallet.Manager
	Executor *failover.Executor
	Source   PriceSource
	Client   FeedClient
	Logger   *slog.Logger
}

// Publisher executes publish cycles. It holds no handle state of its own;
// every cycle asks the session manager afresh so an invalidated session is
// recovered transparently.
type Publisher struct {
	account     string
	chainID     string
	baseSymbol  string
	quoteSymbol string
	unit        *big.Rat

	sessions *wallet.Manager
	executor *failover.Executor
	source   PriceSource
	client   FeedClient
	log      *slog.Logger
}

// New validates the configuration. A missing principal identifier fails
// immediately; nil collaborators yield ErrNotInitialized.
func New(cfg Config) (*Publisher, error) {
	account := strings.TrimSpace(cfg.Account)
	if account == "" {
		return nil, errors.New("publisher: feed account required")
	}
	chainID := strings.TrimSpace(cfg.ChainID)
	if chainID == "" {
		return nil, errors.New("publisher: chain id required")
	}
	if cfg.Sessions == nil || cfg.Executor == nil || cfg.Source == nil || cfg.Client == nil {
		return nil, ErrNotInitialized
	}
	unit := cfg.UnitAmount
	if unit == nil {
		unit = big.NewRat(1, 1)
	}
	if unit.Sign() <= 0 {
		return nil, errors.New("publisher: unit amount must be positive")
	}
	base := strings.ToUpper(strings.TrimSpace(cfg.BaseSymbol))
	quote := strings.ToUpper(strings.TrimSpace(cfg.QuoteSymbol))
	if base == "" || quote == "" {
		return nil, errors.New("publisher: pair symbols required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		account:     account,
		chainID:     chainID,
		baseSymbol:  base,
		quoteSymbol: quote,
		unit:        new(big.Rat).Set(unit),
		sessions:    cfg.Sessions,
		executor:    cfg.Executor,
		source:      cfg.Source,
		client:      cfg.Client,
		log:         logger,
	}, nil
}

// Publish runs one full cycle and returns the broadcast transaction
// identifier. Invalid prices fail before any network attempt; broadcast
// exhaustion propagates the executor's aggregated error unchanged.
func (p *Publisher) Publish(ctx context.Context) (chain.TxID, error) {
	started := time.Now()
	txID, err := p.publish(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.Feed().PublishCycles.WithLabelValues(outcome).Inc()
	observability.Feed().PublishLatency.Observe(time.Since(started).Seconds())
	return txID, err
}

func (p *Publisher) publish(ctx context.Context) (chain.TxID, error) {
	price, err := p.source.GetPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("publisher: fetch price: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return "", &ValidationError{Price: price}
	}

	rate, err := p.exchangeRate(price)
	if err != nil {
		return "", err
	}

	handle, err := p.sessions.EnsureReady()
	if err != nil {
		return "", err
	}

	op := chain.FeedOperation{
		Publisher: p.account,
		PublicKey: handle.PublicKey,
		Rate:      rate,
	}

	txID, err := failover.Execute(ctx, p.executor, "publish_feed",
		func(ctx context.Context, endpoint string) (chain.TxID, error) {
			tx, err := chain.NewFeedTx(op, p.chainID)
			if err != nil {
				return "", err
			}
			signed, err := chain.SignFeedTx(tx, handle, handle.PublicKey)
			if err != nil {
				return "", err
			}
			return p.client.BroadcastFeed(ctx, endpoint, signed)
		})
	if err != nil {
		return "", err
	}

	p.log.Info("published price feed",
		"pair", p.baseSymbol+"/"+p.quoteSymbol,
		"price", price,
		"tx", string(txID))
	return txID, nil
}

// exchangeRate converts the validated price and the fixed unit quantity
// into the two asset values of the feed operation.
func (p *Publisher) exchangeRate(price float64) (chain.ExchangeRate, error) {
	priceRat := new(big.Rat).SetFloat64(price)
	if priceRat == nil {
		return chain.ExchangeRate{}, &ValidationError{Price: price}
	}
	base, err := chain.NewAsset(new(big.Rat).Mul(priceRat, p.unit), p.quoteSymbol)
	if err != nil {
		return chain.ExchangeRate{}, fmt.Errorf("publisher: build base asset: %w", err)
	}
	quote, err := chain.NewAsset(p.unit, p.baseSymbol)
	if err != nil {
		return chain.ExchangeRate{}, fmt.Errorf("publisher: build quote asset: %w", err)
	}
	return chain.ExchangeRate{Base: base, Quote: quote}, nil
}
