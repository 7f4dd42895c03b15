package crypto

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// ScryptParams tunes the keystore KDF cost. Production callers should use
// StandardScryptParams; tests may lower the cost to keep suites fast.
type ScryptParams struct {
	N int
	P int
}

// StandardScryptParams matches the Ethereum v3 keystore defaults.
func StandardScryptParams() ScryptParams {
	return ScryptParams{N: keystore.StandardScryptN, P: keystore.StandardScryptP}
}

// LightScryptParams trades KDF cost for speed. Test use only.
func LightScryptParams() ScryptParams {
	return ScryptParams{N: keystore.LightScryptN, P: keystore.LightScryptP}
}

// EncryptToFile writes the private key to an Ethereum v3 keystore file at
// the given path, creating the parent directory with 0700 permissions when
// missing. The file is written atomically via a temporary sibling.
func EncryptToFile(path string, key *PrivateKey, passphrase string, params ScryptParams) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	stored := &keystore.Key{
		Id:         uuid.New(),
		Address:    gethcrypto.PubkeyToAddress(key.PrivateKey.PublicKey),
		PrivateKey: key.PrivateKey,
	}
	encrypted, err := keystore.EncryptKey(stored, passphrase, params.N, params.P)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encrypted); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// DecryptFromFile loads and decrypts an Ethereum v3 keystore file.
func DecryptFromFile(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{decrypted.PrivateKey}, nil
}
