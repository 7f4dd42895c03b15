package chain

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

type recordingSigner struct {
	digest []byte
	sig    []byte
	err    error
}

func (s *recordingSigner) SignDigest(pub string, digest []byte) ([]byte, error) {
	s.digest = append([]byte(nil), digest...)
	if s.err != nil {
		return nil, s.err
	}
	return s.sig, nil
}

func TestNewAssetRendersFixedPrecision(t *testing.T) {
	asset, err := NewAsset(big.NewRat(1, 3), " usd ")
	if err != nil {
		t.Fatalf("new asset: %v", err)
	}
	if asset.Symbol != "USD" {
		t.Fatalf("unexpected symbol %q", asset.Symbol)
	}
	if asset.Amount != "0.333333333333333333" {
		t.Fatalf("unexpected amount %q", asset.Amount)
	}

	if _, err := NewAsset(big.NewRat(0, 1), "USD"); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := NewAsset(big.NewRat(-1, 2), "USD"); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, err := NewAsset(big.NewRat(1, 2), "  "); err == nil {
		t.Fatal("expected error for blank symbol")
	}
}

func TestNewFeedTxRequiresChainID(t *testing.T) {
	if _, err := NewFeedTx(FeedOperation{}, "  "); !errors.Is(err, ErrMissingChainID) {
		t.Fatalf("expected ErrMissingChainID, got %v", err)
	}
	tx, err := NewFeedTx(FeedOperation{Publisher: "feedwitness"}, " feed-test ")
	if err != nil {
		t.Fatalf("new feed tx: %v", err)
	}
	if tx.ChainID != "feed-test" {
		t.Fatalf("unexpected chain id %q", tx.ChainID)
	}
	if tx.Timestamp == 0 {
		t.Fatal("expected timestamp to be stamped")
	}
}

func TestDigestIsDeterministicAndFieldSensitive(t *testing.T) {
	tx := &FeedTx{ChainID: "feed-test", Timestamp: 1700000000, Operation: FeedOperation{Publisher: "feedwitness"}}

	first, err := tx.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	second, err := tx.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if first != second {
		t.Fatal("digest of unchanged transaction differs between calls")
	}

	tx.Timestamp++
	changed, err := tx.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if changed == first {
		t.Fatal("digest did not change with the timestamp")
	}
}

func TestSignFeedTxBuildsEnvelope(t *testing.T) {
	tx := &FeedTx{ChainID: "feed-test", Timestamp: 1700000000, Operation: FeedOperation{Publisher: "feedwitness"}}
	signer := &recordingSigner{sig: []byte{0xde, 0xad, 0xbe, 0xef}}

	signed, err := SignFeedTx(tx, signer, "fpub1alpha")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.PublicKey != "fpub1alpha" {
		t.Fatalf("unexpected public key %q", signed.PublicKey)
	}
	if signed.Signature != hex.EncodeToString(signer.sig) {
		t.Fatalf("unexpected signature %q", signed.Signature)
	}
	digest, err := tx.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if hex.EncodeToString(signer.digest) != hex.EncodeToString(digest[:]) {
		t.Fatal("signer saw a digest that does not match the transaction")
	}

	if _, err := SignFeedTx(nil, signer, "fpub1alpha"); err == nil {
		t.Fatal("expected error for nil transaction")
	}
	if _, err := SignFeedTx(tx, nil, "fpub1alpha"); err == nil {
		t.Fatal("expected error for nil signer")
	}

	signer.err = errors.New("locked")
	if _, err := SignFeedTx(tx, signer, "fpub1alpha"); err == nil {
		t.Fatal("expected signer error to propagate")
	}
}
