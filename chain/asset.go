// Package chain owns the feed transaction format and the JSON-RPC client
// used to broadcast it to a node.
package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// assetPrecision is the canonical number of decimal places rendered into
// asset amounts on the wire.
const assetPrecision = 18

// Asset is a decimal amount of a named symbol, rendered canonically so that
// signatures over the containing transaction are stable.
type Asset struct {
	Amount string `json:"amount"`
	Symbol string `json:"symbol"`
}

// NewAsset renders the rational amount with fixed precision. The amount
// must be positive.
func NewAsset(amount *big.Rat, symbol string) (Asset, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Asset{}, fmt.Errorf("chain: asset amount must be positive")
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return Asset{}, fmt.Errorf("chain: asset symbol required")
	}
	return Asset{Amount: amount.FloatString(assetPrecision), Symbol: sym}, nil
}

// ExchangeRate pairs the two asset values of a price feed: Base is the
// quoted price and Quote the fixed unit quantity it prices.
type ExchangeRate struct {
	Base  Asset `json:"base"`
	Quote Asset `json:"quote"`
}
