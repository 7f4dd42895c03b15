// Package wallet manages the signing credential used to authenticate feed
// transactions: a keystore-backed wallet container opened once per process
// and a session manager that keeps the unlocked handle ready for reuse.
package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"feedd/crypto"
)

// ErrWalletNotFound reports that the named wallet container does not exist
// yet. Manager reacts by bootstrapping a fresh container.
var ErrWalletNotFound = errors.New("wallet: container not found")

// Store creates named sessions scoping access to wallet containers.
type Store interface {
	CreateSession(name string) (Session, error)
}

// Session provides access to named wallet containers. Opening requires the
// container to exist; creation requires it not to.
type Session interface {
	OpenWallet(name, passphrase string) (Wallet, error)
	CreateWallet(name, passphrase string) (Wallet, error)
}

// Wallet is an unlocked credential container capable of producing
// signatures with any of its keys.
type Wallet interface {
	// ImportKey adds the hex-encoded secret to the container and returns
	// the public identifier of the imported key.
	ImportKey(secretHex string) (string, error)
	// PublicKeys lists the public identifiers held by the container. It
	// doubles as the liveness probe for cached handles.
	PublicKeys() ([]string, error)
	// SignDigest signs the 32-byte digest with the key matching the
	// supplied public identifier.
	SignDigest(pub string, digest []byte) ([]byte, error)
}

// KeystoreStore keeps each wallet container as an Ethereum v3 keystore file
// named <wallet>.json inside a per-session directory.
type KeystoreStore struct {
	dir    string
	scrypt crypto.ScryptParams
}

// StoreOption customises a KeystoreStore.
type StoreOption func(*KeystoreStore)

// WithScryptParams overrides the keystore KDF cost.
func WithScryptParams(params crypto.ScryptParams) StoreOption {
	return func(s *KeystoreStore) { s.scrypt = params }
}

// NewKeystoreStore builds a store rooted at dir.
func NewKeystoreStore(dir string, opts ...StoreOption) (*KeystoreStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("wallet: store directory required")
	}
	store := &KeystoreStore{dir: trimmed, scrypt: crypto.StandardScryptParams()}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// CreateSession materialises the session directory and returns a session
// scoped to it.
func (s *KeystoreStore) CreateSession(name string) (Session, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, errors.New("wallet: session name required")
	}
	path := filepath.Join(s.dir, trimmed)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("wallet: create session dir: %w", err)
	}
	return &keystoreSession{dir: path, scrypt: s.scrypt}, nil
}

type keystoreSession struct {
	dir    string
	scrypt crypto.ScryptParams
}

func (s *keystoreSession) walletPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *keystoreSession) OpenWallet(name, passphrase string) (Wallet, error) {
	path := s.walletPath(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet: stat container: %w", err)
	}
	key, err := crypto.DecryptFromFile(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: unlock container %s: %w", name, err)
	}
	w := &keystoreWallet{path: path, passphrase: passphrase, scrypt: s.scrypt}
	w.keys = append(w.keys, key)
	return w, nil
}

func (s *keystoreSession) CreateWallet(name, passphrase string) (Wallet, error) {
	path := s.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("wallet: container %s already exists", name)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("wallet: stat container: %w", err)
	}
	return &keystoreWallet{path: path, passphrase: passphrase, scrypt: s.scrypt}, nil
}

// keystoreWallet holds the decrypted keys of one container. The backing
// file is only written on import; a freshly created wallet has no file
// until its first key arrives.
type keystoreWallet struct {
	mu         sync.Mutex
	path       string
	passphrase string
	scrypt     crypto.ScryptParams
	keys       []*crypto.PrivateKey
}

func (w *keystoreWallet) ImportKey(secretHex string) (string, error) {
	key, err := crypto.PrivateKeyFromHex(secretHex)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := crypto.EncryptToFile(w.path, key, w.passphrase, w.scrypt); err != nil {
		return "", fmt.Errorf("wallet: persist imported key: %w", err)
	}
	w.keys = append(w.keys, key)
	return key.PubKey().Identifier(), nil
}

func (w *keystoreWallet) PublicKeys() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.keys))
	for _, key := range w.keys {
		ids = append(ids, key.PubKey().Identifier())
	}
	return ids, nil
}

func (w *keystoreWallet) SignDigest(pub string, digest []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, key := range w.keys {
		if key.PubKey().Identifier() == pub {
			return key.Sign(digest)
		}
	}
	return nil, fmt.Errorf("wallet: no key matching %s", pub)
}
