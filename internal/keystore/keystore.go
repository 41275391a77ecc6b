// Package keystore persists the user's bearer token at rest. The token
// is encrypted with AES-256-GCM under a key derived from a
// caller-supplied secret; on mobile the host app supplies a secret from
// the platform keychain, the CLI derives one from the project api key.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/stevoh213/cragbook/internal/errors"
)

const tokenFile = "token.enc"

// Store reads and writes the encrypted token file under dataDir.
type Store struct {
	path string
	key  [32]byte
}

// New creates a Store keyed by secret.
func New(dataDir, secret string) *Store {
	return &Store{
		path: filepath.Join(dataDir, tokenFile),
		key:  sha256.Sum256([]byte(secret)),
	}
}

// SaveToken encrypts and writes the token. The file is owner-readable
// only.
func (s *Store) SaveToken(token string) error {
	sealed, err := s.seal([]byte(token))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encrypt token", err)
	}
	if err := os.WriteFile(s.path, []byte(sealed), 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to write token file", err)
	}
	return nil
}

// LoadToken decrypts and returns the stored token; the empty string
// when none has been saved. A token file that does not decrypt under
// the current secret is an error, not silence.
func (s *Store) LoadToken() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "failed to read token file", err)
	}

	token, err := s.open(string(data))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalid, "stored token is unreadable", err)
	}
	return string(token), nil
}

// Clear removes the stored token, as on sign-out.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to remove token file", err)
	}
	return nil
}

func (s *Store) seal(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

func (s *Store) open(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("malformed token file: %w", err)
	}

	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("token file too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
