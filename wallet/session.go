package wallet

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"feedd/observability"
)

// ErrNoPublicKeys reports that an unlocked container listed no keys, so no
// signing identity can be derived from it.
var ErrNoPublicKeys = errors.New("wallet: no public keys")

// ErrSigningSecretRequired reports that bootstrapping a fresh container was
// necessary but no signing secret was configured.
var ErrSigningSecretRequired = errors.New("wallet: signing secret required to bootstrap container")

// ErrImportedKeyMismatch reports that a re-bootstrapped container yielded a
// public identifier different from the one previously cached. Continuing
// would silently publish under a stale key, so the manager refuses.
var ErrImportedKeyMismatch = errors.New("wallet: imported key does not match cached public identifier")

// State enumerates the lifecycle of the managed signing session.
type State uint8

const (
	// StateUninitialized means no session container exists yet.
	StateUninitialized State = iota
	// StateSessionOpen means a session exists but no unlocked handle.
	StateSessionOpen
	// StateHandleReady means a validated handle is cached and signing is
	// permitted.
	StateHandleReady
	// StateExpired means the cached handle failed its liveness probe and
	// the session must be rebuilt.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSessionOpen:
		return "session-open"
	case StateHandleReady:
		return "handle-ready"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Handle is an unlocked wallet bound to the public identifier used for
// signing.
type Handle struct {
	Wallet
	// PublicKey is the cached signing public identifier, the first key
	// listed when the container was unlocked or bootstrapped.
	PublicKey string
}

// PassphraseFunc resolves the fixed process-local wrapper passphrase
// protecting the wallet container. It is not the signing secret.
type PassphraseFunc func() (string, error)

// ManagerConfig carries the construction parameters for a Manager.
type ManagerConfig struct {
	Store       Store
	SessionName string
	WalletName  string
	Passphrase  PassphraseFunc
	// SecretHex is the hex-encoded signing secret, required only the
	// first time a container is bootstrapped.
	SecretHex string
	Logger    *slog.Logger
}

// Manager owns the process-wide signing session: it validates the cached
// handle before each use, recreates it when the container store invalidates
// it, and bootstraps a wallet exactly once when none exists.
type Manager struct {
	mu sync.Mutex

	store       Store
	sessionName string
	walletName  string
	passphrase  PassphraseFunc
	secretHex   string
	log         *slog.Logger

	state   State
	session Session
	handle  Wallet
	pub     string
}

// NewManager validates the configuration and returns a manager in the
// uninitialized state. No store calls are made until EnsureReady.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("wallet: store required")
	}
	if strings.TrimSpace(cfg.SessionName) == "" {
		return nil, errors.New("wallet: session name required")
	}
	if strings.TrimSpace(cfg.WalletName) == "" {
		return nil, errors.New("wallet: wallet name required")
	}
	if cfg.Passphrase == nil {
		return nil, errors.New("wallet: passphrase source required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       cfg.Store,
		sessionName: strings.TrimSpace(cfg.SessionName),
		walletName:  strings.TrimSpace(cfg.WalletName),
		passphrase:  cfg.Passphrase,
		secretHex:   strings.TrimSpace(cfg.SecretHex),
		log:         logger,
		state:       StateUninitialized,
	}, nil
}

// State reports the current session state. Exposed for tests and health
// reporting.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureReady returns a handle bound to the cached signing public
// identifier, unlocking or bootstrapping the wallet container as needed.
// Safe for concurrent use; the full transition runs under one lock so two
// callers cannot race to discard and recreate the same session.
func (m *Manager) EnsureReady() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateHandleReady {
		keys, err := m.handle.PublicKeys()
		if err == nil && len(keys) > 0 {
			return &Handle{Wallet: m.handle, PublicKey: m.pub}, nil
		}
		m.log.Warn("signing handle failed liveness probe, rebuilding session",
			"error", err, "keys", len(keys))
		m.expire()
	}

	if m.session == nil {
		session, err := m.store.CreateSession(m.sessionName)
		if err != nil {
			return nil, fmt.Errorf("wallet: create session: %w", err)
		}
		m.session = session
		m.state = StateSessionOpen
		observability.Feed().SessionRecreations.Inc()
	}

	pass, err := m.passphrase()
	if err != nil {
		return nil, fmt.Errorf("wallet: resolve passphrase: %w", err)
	}

	w, err := m.session.OpenWallet(m.walletName, pass)
	switch {
	case err == nil:
		keys, err := w.PublicKeys()
		if err != nil {
			return nil, fmt.Errorf("wallet: list keys: %w", err)
		}
		if len(keys) == 0 {
			return nil, ErrNoPublicKeys
		}
		if err := m.adopt(w, keys[0]); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrWalletNotFound):
		if m.secretHex == "" {
			return nil, ErrSigningSecretRequired
		}
		created, err := m.session.CreateWallet(m.walletName, pass)
		if err != nil {
			return nil, fmt.Errorf("wallet: create container: %w", err)
		}
		pub, err := created.ImportKey(m.secretHex)
		if err != nil {
			return nil, fmt.Errorf("wallet: import signing secret: %w", err)
		}
		if pub == "" {
			return nil, ErrNoPublicKeys
		}
		m.log.Info("bootstrapped wallet container", "wallet", m.walletName)
		if err := m.adopt(created, pub); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &Handle{Wallet: m.handle, PublicKey: m.pub}, nil
}

// adopt caches the unlocked wallet and its signing identifier, refusing a
// key that diverges from one cached earlier in the process lifetime.
func (m *Manager) adopt(w Wallet, pub string) error {
	if m.pub != "" && m.pub != pub {
		return fmt.Errorf("%w: cached %s, got %s", ErrImportedKeyMismatch, m.pub, pub)
	}
	m.handle = w
	m.pub = pub
	m.state = StateHandleReady
	return nil
}

// expire drops the stale session and handle so the next transition rebuilds
// the chain from scratch. Callers hold m.mu.
func (m *Manager) expire() {
	m.state = StateExpired
	m.session = nil
	m.handle = nil
}
