package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PublicKeyHRP is the bech32 human-readable prefix used when rendering
// signing public identifiers.
const PublicKeyHRP = "fpub"

// PrivateKey wraps a secp256k1 ECDSA key used to sign feed transactions.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// PublicKey wraps the verification half of a signing key.
type PublicKey struct {
	*ecdsa.PublicKey
}

// GeneratePrivateKey creates a fresh secp256k1 key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(gethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromBytes parses a raw 32-byte secp256k1 scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := gethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromHex parses a hex-encoded private key, tolerating an
// optional 0x prefix and surrounding whitespace.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode private key hex: %w", err)
	}
	return PrivateKeyFromBytes(raw)
}

// Bytes returns the raw scalar encoding of the private key.
func (k *PrivateKey) Bytes() []byte {
	return gethcrypto.FromECDSA(k.PrivateKey)
}

// PubKey returns the public half of the key.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Sign produces a 65-byte [R || S || V] signature over the supplied
// 32-byte digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("crypto: digest must be 32 bytes, got %d", len(digest))
	}
	return gethcrypto.Sign(digest, k.PrivateKey)
}

// Identifier renders the compressed public key as a bech32 string with
// the feed prefix. This is the canonical signing public identifier
// carried in feed operations and wallet listings.
func (p *PublicKey) Identifier() string {
	compressed := gethcrypto.CompressPubkey(p.PublicKey)
	conv, err := bech32.ConvertBits(compressed, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(PublicKeyHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeIdentifier parses a bech32 public identifier back into a public key.
func DecodeIdentifier(id string) (*PublicKey, error) {
	hrp, data, err := bech32.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid public identifier: %w", err)
	}
	if hrp != PublicKeyHRP {
		return nil, fmt.Errorf("crypto: unexpected identifier prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("crypto: convert identifier bits: %w", err)
	}
	pub, err := gethcrypto.DecompressPubkey(conv)
	if err != nil {
		return nil, fmt.Errorf("crypto: decompress public key: %w", err)
	}
	return &PublicKey{pub}, nil
}
