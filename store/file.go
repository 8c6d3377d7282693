package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const fileFormatVersion = 1

// KeySize is the byte length required by [NewSealedFileStore] keys.
const KeySize = chacha20poly1305.KeySize

var (
	// ErrKeySize is returned when a sealing key is not KeySize bytes.
	ErrKeySize  = errors.New("sealing key must be 32 bytes")
	errSealOpen = errors.New("sealed record cannot be opened")
)

type fileEnvelope struct {
	Version      int    `json:"v"`
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	Profile      []byte `json:"profile"`
}

// FileStore persists the record in a single file, replaced atomically via a
// same-directory rename so a crashed write can never leave a torn record.
// With a sealing key, the envelope is encrypted with XChaCha20-Poly1305; a
// refresh token is a long-lived credential and has no business sitting on
// disk in the clear.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileStore creates a plaintext file store at path. The parent directory
// must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewSealedFileStore creates a file store whose on-disk envelope is sealed
// with the given 32-byte key.
func NewSealedFileStore(path string, key []byte) (*FileStore, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return &FileStore{path: path, key: append([]byte(nil), key...)}, nil
}

// Read implements [Store].
func (s *FileStore) Read(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	if s.key != nil {
		raw, err = s.open(raw)
		if err != nil {
			return nil, err
		}
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if env.Version != fileFormatVersion {
		return nil, fmt.Errorf("decode session file: unsupported version %d", env.Version)
	}

	rec := &Record{
		AccessToken:  env.AccessToken,
		RefreshToken: env.RefreshToken,
		Profile:      env.Profile,
	}
	if !rec.complete() {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Write implements [Store].
func (s *FileStore) Write(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}

	raw, err := json.Marshal(fileEnvelope{
		Version:      fileFormatVersion,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Profile:      rec.Profile,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		raw, err = s.seal(raw)
		if err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear implements [Store]. A missing file is success.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errSealOpen
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, errSealOpen
	}
	return plain, nil
}
