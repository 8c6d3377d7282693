package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	return &Record{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Profile:      []byte(`{"id":1,"username":"admin","role":"admin"}`),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	in := testRecord()
	require.NoError(t, s.Write(ctx, in))

	out, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.Equal(t, in.Profile, out.Profile)
}

func TestMemoryStoreReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Write(ctx, testRecord()))

	first, err := s.Read(ctx)
	require.NoError(t, err)
	first.Profile[0] = 'X'

	second, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), second.Profile[0], "mutating a read record must not corrupt the store")
}

func TestMemoryStoreRejectsIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for name, rec := range map[string]*Record{
		"nil":        nil,
		"no access":  {RefreshToken: "R1", Profile: []byte("{}")},
		"no refresh": {AccessToken: "A1", Profile: []byte("{}")},
		"no profile": {AccessToken: "A1", RefreshToken: "R1"},
	} {
		assert.Error(t, s.Write(ctx, rec), name)
	}

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Write(ctx, testRecord()))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.Error(t, s.Write(ctx, testRecord()))
	_, err := s.Read(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
