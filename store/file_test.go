package store

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTripByteIdentical(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	in := testRecord()
	require.NoError(t, s.Write(ctx, in))

	out, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.Equal(t, in.Profile, out.Profile, "profile bytes must survive verbatim")
}

func TestFileStoreMissingFileIsNotFound(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := s.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Write(ctx, testRecord()))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clear must remove the file")
}

func TestFileStoreOverwriteReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, s.Write(ctx, testRecord()))
	next := &Record{AccessToken: "A2", RefreshToken: "R2", Profile: []byte(`{"id":2}`)}
	require.NoError(t, s.Write(ctx, next))

	out, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A2", out.AccessToken)
	assert.Equal(t, "R2", out.RefreshToken)
	assert.Equal(t, []byte(`{"id":2}`), out.Profile)
}

func TestFileStorePermissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)
	require.NoError(t, s.Write(ctx, testRecord()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "credentials file must not be group/world readable")
}

func TestSealedFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.bin")
	s, err := NewSealedFileStore(path, key)
	require.NoError(t, err)

	in := testRecord()
	require.NoError(t, s.Write(ctx, in))

	// Ciphertext must not leak the refresh token.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), in.RefreshToken)

	out, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.Equal(t, in.Profile, out.Profile)
}

func TestSealedFileStoreWrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bin")

	keyA := make([]byte, KeySize)
	keyB := make([]byte, KeySize)
	keyB[0] = 1

	writer, err := NewSealedFileStore(path, keyA)
	require.NoError(t, err)
	require.NoError(t, writer.Write(ctx, testRecord()))

	reader, err := NewSealedFileStore(path, keyB)
	require.NoError(t, err)
	_, err = reader.Read(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a tampered/foreign record is a fault, not a logged-out state")
}

func TestSealedFileStoreRejectsShortKey(t *testing.T) {
	_, err := NewSealedFileStore("x", []byte("short"))
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestFileStoreTornFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Read(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
