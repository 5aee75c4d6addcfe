// Copyright 2025 Certen Protocol
//
// Package keystore holds the relayer's per-chain signer keys, encrypted at
// rest with an Argon2id-derived key and AES-256-GCM, one JSON envelope
// file per chain.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// ErrWrongPassword is returned by Load when decryption fails.
var ErrWrongPassword = errors.New("keystore: wrong password or corrupted keystore")

// argon2Params fixes the KDF cost; these mirror the OWASP-recommended
// Argon2id baseline (64 MiB memory, 1 iteration, 4 threads, 32-byte key).
type argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var defaultParams = argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}

// keystoreVersion is the current envelope version.
const keystoreVersion uint32 = 1

type kdfParams struct {
	Iterations  uint32 `json:"iterations"`
	Memory      uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
}

type keystoreFile struct {
	Version    uint32    `json:"version"`
	ChainID    string    `json:"chain_id"`
	KeyType    string    `json:"key_type"`
	Ciphertext string    `json:"ciphertext"`
	Nonce      string    `json:"nonce"`
	Salt       string    `json:"salt"`
	KDF        kdfParams `json:"kdf"`
}

func deriveKey(password string, salt []byte, p argon2Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// Save encrypts privateKey with password and writes it to path, one file
// per chain's signer key.
func Save(path, chainID, keyType, password string, privateKey []byte) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt, defaultParams)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	cipherText := gcm.Seal(nil, nonce, privateKey, nil)

	ks := keystoreFile{
		Version:    keystoreVersion,
		ChainID:    chainID,
		KeyType:    keyType,
		Ciphertext: hex.EncodeToString(cipherText),
		Nonce:      hex.EncodeToString(nonce),
		Salt:       hex.EncodeToString(salt),
		KDF: kdfParams{
			Iterations:  defaultParams.Time,
			Memory:      defaultParams.Memory,
			Parallelism: defaultParams.Threads,
		},
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create keystore directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load decrypts the keystore file at path using password.
func Load(path, password string) (chainID, keyType string, privateKey []byte, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("read keystore %s: %w", path, err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return "", "", nil, fmt.Errorf("parse keystore %s: %w", path, err)
	}
	if ks.Version != keystoreVersion {
		return "", "", nil, fmt.Errorf("keystore %s: unsupported version %d", path, ks.Version)
	}
	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return "", "", nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return "", "", nil, fmt.Errorf("decode nonce: %w", err)
	}
	cipherText, err := hex.DecodeString(ks.Ciphertext)
	if err != nil {
		return "", "", nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	params := argon2Params{Time: ks.KDF.Iterations, Memory: ks.KDF.Memory, Threads: ks.KDF.Parallelism, KeyLen: 32}
	key := deriveKey(password, salt, params)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", nil, fmt.Errorf("create gcm: %w", err)
	}
	plain, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", "", nil, ErrWrongPassword
	}
	return ks.ChainID, ks.KeyType, plain, nil
}
