package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "sealed:v1:"

// ErrUnsealed is returned when a stored value is not a sealed envelope or
// fails authentication.
var ErrUnsealed = errors.New("store: value is not sealed with the configured key")

// SealedStore encrypts values at rest with XChaCha20-Poly1305 before handing
// them to the wrapped backend. The key name is bound as additional data, so a
// value copied to another key does not open.
type SealedStore struct {
	inner KV
	aead  cipher.AEAD
}

// NewSealedStore wraps inner with a 32-byte key.
func NewSealedStore(inner KV, key []byte) (*SealedStore, error) {
	if inner == nil {
		return nil, errors.New("sealed store requires a backend")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// ParseKey decodes a base64 (std or URL) sealing key.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(encoded); err == nil {
			if len(key) != chacha20poly1305.KeySize {
				return nil, fmt.Errorf("sealing key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
			}
			return key, nil
		}
	}
	return nil, errors.New("sealing key is not valid base64")
}

// Get opens the stored envelope.
func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

// SetPair seals both values and delegates the pair write.
func (s *SealedStore) SetPair(ctx context.Context, k1, v1, k2, v2 string) error {
	if err := checkKeys(k1, k2); err != nil {
		return err
	}
	s1, err := s.seal(k1, v1)
	if err != nil {
		return err
	}
	s2, err := s.seal(k2, v2)
	if err != nil {
		return err
	}
	return s.inner.SetPair(ctx, k1, s1, k2, s2)
}

// DeletePair delegates unchanged.
func (s *SealedStore) DeletePair(ctx context.Context, k1, k2 string) error {
	return s.inner.DeletePair(ctx, k1, k2)
}

// Close closes the wrapped backend when it holds resources.
func (s *SealedStore) Close() error {
	if c, ok := s.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *SealedStore) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(key, value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return "", ErrUnsealed
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrUnsealed
	}
	nonce, ct := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", ErrUnsealed
	}
	return string(plain), nil
}
