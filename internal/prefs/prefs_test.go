package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got, "Set replaces")

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "k"), "deleting a missing key is not an error")
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prefs.db")
	s, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "kept", "yes"))
	require.NoError(t, s.Close())

	// Reopening applies no migration twice and keeps data.
	s, err = OpenSQLite(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "kept")
	require.NoError(t, err)
	assert.Equal(t, "yes", got)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), addr, "feedwall-test:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	_, err = Open(context.Background(), Options{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestPrefs_votes(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice := ForViewer(store, "alice")
	bob := ForViewer(store, "bob")

	require.NoError(t, alice.SetVote(ctx, "42", VoteUp))
	v, err := alice.Vote(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, VoteUp, v)

	v, err = bob.Vote(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, VoteNone, v, "votes are per viewer")

	raw, err := store.Get(ctx, "viewer:alice:vote:42")
	require.NoError(t, err)
	assert.Equal(t, "up", raw)

	require.NoError(t, alice.SetVote(ctx, "42", VoteNone))
	_, err = store.Get(ctx, "viewer:alice:vote:42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrefs_country_filter(t *testing.T) {
	ctx := context.Background()
	p := ForViewer(NewInMemoryStore(), "v1")

	f, err := p.CountryFilter(ctx)
	require.NoError(t, err)
	assert.Empty(t, f)

	require.NoError(t, p.SetCountryFilter(ctx, "United States"))
	f, err = p.CountryFilter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "US", f)

	require.NoError(t, p.SetCountryFilter(ctx, ""))
	f, err = p.CountryFilter(ctx)
	require.NoError(t, err)
	assert.Empty(t, f)
}

func TestParseVote(t *testing.T) {
	for in, want := range map[string]Vote{"up": VoteUp, "+1": VoteUp, "DOWN": VoteDown, "-1": VoteDown, "0": VoteNone} {
		got, err := ParseVote(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseVote("sideways")
	assert.ErrorIs(t, err, ErrInvalidVote)
	assert.Equal(t, "none", Vote(5).String())
}
