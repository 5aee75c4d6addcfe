package keystore

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain-a.json")
	privateKey := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	require.NoError(t, Save(path, "chain-a", KeyTypeSecp256k1, "correct horse battery staple", privateKey))

	chainID, keyType, got, err := Load(path, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, "chain-a", chainID)
	require.Equal(t, KeyTypeSecp256k1, keyType)
	require.Equal(t, privateKey, got)
}

func TestLoadWrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain-a.json")
	require.NoError(t, Save(path, "chain-a", KeyTypeSecp256k1, "right-password", []byte{0xAA, 0xBB}))

	_, _, _, err := Load(path, "wrong-password")
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestFileBackendLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "chain-a.json"), "chain-a", KeyTypeSecp256k1, "pw", []byte{0x01}))
	require.NoError(t, Save(filepath.Join(dir, "chain-b.json"), "chain-b", KeyTypeEd25519, "pw", []byte{0x02}))

	fb, err := NewFileBackend(dir, "pw")
	require.NoError(t, err)

	keyA, ok := fb.Get("chain-a")
	require.True(t, ok)
	require.Equal(t, KeyTypeSecp256k1, keyA.Type)
	require.Equal(t, byte(0x01), keyA.Secret[0])

	keyB, ok := fb.Get("chain-b")
	require.True(t, ok)
	require.Equal(t, KeyTypeEd25519, keyB.Type)
	require.Equal(t, byte(0x02), keyB.Secret[0])
}

func TestFileBackendMissingDirectoryIsNotAnError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	fb, err := NewFileBackend(dir, "pw")
	require.NoError(t, err)

	_, ok := fb.Get("chain-a")
	require.False(t, ok, "expected no keys in an empty backend")
}

func TestParseEnvValueSecp256k1(t *testing.T) {
	key, err := ParseEnvValue("0xABCDEF0123456789:" + hex.EncodeToString([]byte{0xDE, 0xAD}))
	require.NoError(t, err)
	require.Equal(t, KeyTypeSecp256k1, key.Type)
	require.Equal(t, "0xABCDEF0123456789", key.Account)
	require.Equal(t, []byte{0xDE, 0xAD}, key.Secret)
}

func TestParseEnvValueEd25519(t *testing.T) {
	key, err := ParseEnvValue("relayer.testnet:ed25519:3s1Vq")
	require.NoError(t, err)
	require.Equal(t, KeyTypeEd25519, key.Type)
	require.Equal(t, "relayer.testnet", key.Account)
	require.Equal(t, []byte("3s1Vq"), key.Secret)
}

func TestParseEnvValueRejectsMalformed(t *testing.T) {
	_, err := ParseEnvValue("no-separator")
	require.Error(t, err)

	_, err = ParseEnvValue("addr:not-hex")
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RELAYER_KEY_CHAIN_A", "0xFEED:"+hex.EncodeToString([]byte{0xDE, 0xAD}))
	backend := NewMemoryBackend()
	require.NoError(t, LoadFromEnv(backend, "RELAYER_KEY", []string{"chain-a", "chain-b"}))

	key, ok := backend.Get("chain-a")
	require.True(t, ok)
	require.Equal(t, []byte{0xDE, 0xAD}, key.Secret)
	require.Equal(t, "0xFEED", key.Account)

	_, ok = backend.Get("chain-b")
	require.False(t, ok, "expected chain-b to be absent: no matching env var was set")
}
