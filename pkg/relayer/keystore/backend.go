// Copyright 2025 Certen Protocol
package keystore

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Signer key algorithms, matching the environment-variable value formats:
// "address:hex_private_key" for secp256k1 accounts and
// "account_id:ed25519:secret" for Ed25519 accounts.
const (
	KeyTypeSecp256k1 = "secp256k1"
	KeyTypeEd25519   = "ed25519"
)

// SignerKey is one chain's signing identity.
type SignerKey struct {
	Type    string
	Account string // address (secp256k1) or account id (ed25519)
	Secret  []byte
}

// ParseEnvValue decodes the two env-var value formats into a SignerKey.
func ParseEnvValue(value string) (SignerKey, error) {
	if idx := strings.Index(value, ":ed25519:"); idx >= 0 {
		account := value[:idx]
		secret := value[idx+len(":ed25519:"):]
		if account == "" || secret == "" {
			return SignerKey{}, fmt.Errorf("keystore: malformed ed25519 key value (want account_id:ed25519:secret)")
		}
		return SignerKey{Type: KeyTypeEd25519, Account: account, Secret: []byte(secret)}, nil
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return SignerKey{}, fmt.Errorf("keystore: malformed secp256k1 key value (want address:hex_private_key)")
	}
	secret, err := hex.DecodeString(parts[1])
	if err != nil {
		return SignerKey{}, fmt.Errorf("keystore: decode secp256k1 private key hex: %w", err)
	}
	return SignerKey{Type: KeyTypeSecp256k1, Account: parts[0], Secret: secret}, nil
}

// Backend holds signer keys per chain id.
type Backend interface {
	Get(chainID string) (SignerKey, bool)
	Set(chainID string, key SignerKey)
}

// MemoryBackend is an in-memory Backend, used in tests and for
// ephemeral/dev signing setups.
type MemoryBackend struct {
	mu   sync.RWMutex
	keys map[string]SignerKey
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{keys: make(map[string]SignerKey)}
}

func (b *MemoryBackend) Get(chainID string) (SignerKey, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	k, ok := b.keys[chainID]
	return k, ok
}

func (b *MemoryBackend) Set(chainID string, key SignerKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[chainID] = key
}

// FileBackend holds the keys of a directory of encrypted keystore files,
// decrypted when the backend is created and cached in memory; Set also
// writes the key's file.
type FileBackend struct {
	dir      string
	password string
	cache    *MemoryBackend
}

// NewFileBackend decrypts every non-directory entry of dir with password,
// keying each key by the chain id stored inside its file.
func NewFileBackend(dir, password string) (*FileBackend, error) {
	fb := &FileBackend{dir: dir, password: password, cache: NewMemoryBackend()}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fb, nil
		}
		return nil, fmt.Errorf("read keystore directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		chainID, keyType, secret, err := Load(filepath.Join(dir, entry.Name()), password)
		if err != nil {
			return nil, fmt.Errorf("load keystore file %s: %w", entry.Name(), err)
		}
		fb.cache.Set(chainID, SignerKey{Type: keyType, Secret: secret})
	}
	return fb, nil
}

func (fb *FileBackend) Get(chainID string) (SignerKey, bool) {
	return fb.cache.Get(chainID)
}

func (fb *FileBackend) Set(chainID string, key SignerKey) {
	fb.cache.Set(chainID, key)
	path := filepath.Join(fb.dir, chainID+".json")
	_ = Save(path, chainID, key.Type, fb.password, key.Secret)
}

// LoadFromEnv reads "<prefix>_<CHAIN_ID>" environment variables into
// backend. Values follow the ParseEnvValue formats.
func LoadFromEnv(backend Backend, prefix string, chainIDs []string) error {
	for _, chainID := range chainIDs {
		envVar := prefix + "_" + envSafe(chainID)
		raw := os.Getenv(envVar)
		if raw == "" {
			continue
		}
		key, err := ParseEnvValue(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envVar, err)
		}
		backend.Set(chainID, key)
	}
	return nil
}

func envSafe(chainID string) string {
	return strings.ToUpper(strings.ReplaceAll(chainID, "-", "_"))
}
