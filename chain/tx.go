package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingChainID reports that a transaction was built without a network
// identifier.
var ErrMissingChainID = errors.New("chain: chain id required")

// FeedOperation is the state-update payload: the publishing account, the
// signing public identifier, and the exchange-rate pair.
type FeedOperation struct {
	Publisher string       `json:"publisher"`
	PublicKey string       `json:"publicKey"`
	Rate      ExchangeRate `json:"rate"`
}

// FeedTx wraps a feed operation with replay protection.
type FeedTx struct {
	ChainID   string        `json:"chainId"`
	Timestamp int64         `json:"timestamp"`
	Operation FeedOperation `json:"operation"`
}

// SignedFeedTx is the broadcastable form of a feed transaction.
type SignedFeedTx struct {
	Tx        FeedTx `json:"tx"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// Signer produces a signature over a 32-byte digest with the key matching
// the supplied public identifier. wallet handles satisfy this.
type Signer interface {
	SignDigest(pub string, digest []byte) ([]byte, error)
}

// NewFeedTx stamps the operation with the chain identifier and the current
// time.
func NewFeedTx(op FeedOperation, chainID string) (*FeedTx, error) {
	trimmed := strings.TrimSpace(chainID)
	if trimmed == "" {
		return nil, ErrMissingChainID
	}
	return &FeedTx{
		ChainID:   trimmed,
		Timestamp: time.Now().UTC().Unix(),
		Operation: op,
	}, nil
}

// Digest hashes the canonical JSON encoding of the transaction.
func (tx *FeedTx) Digest() ([32]byte, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return [32]byte{}, fmt.Errorf("chain: encode transaction: %w", err)
	}
	return sha256.Sum256(body), nil
}

// SignFeedTx signs the transaction digest with the key behind pub and
// returns the broadcastable envelope.
func SignFeedTx(tx *FeedTx, signer Signer, pub string) (*SignedFeedTx, error) {
	if tx == nil {
		return nil, errors.New("chain: nil transaction")
	}
	if signer == nil {
		return nil, errors.New("chain: signer required")
	}
	digest, err := tx.Digest()
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignDigest(pub, digest[:])
	if err != nil {
		return nil, fmt.Errorf("chain: sign transaction: %w", err)
	}
	return &SignedFeedTx{
		Tx:        *tx,
		PublicKey: pub,
		Signature: hex.EncodeToString(sig),
	}, nil
}
