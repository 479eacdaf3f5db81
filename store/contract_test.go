package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

// runContract exercises the behaviour every backend must share.
func runContract(t *testing.T, open func(t *testing.T) RecordStore) {
	ctx := context.Background()

	t.Run("empty collection has no version", func(t *testing.T) {
		s := open(t)
		snap, err := s.ReadAll(ctx, CollectionBounties)
		require.NoError(t, err)
		assert.Empty(t, snap.Records)
		assert.Equal(t, Version(""), snap.Version)
	})

	t.Run("write then read keeps order", func(t *testing.T) {
		s := open(t)
		v, err := s.WriteAll(ctx, CollectionBounties, []json.RawMessage{raw(`{"id":"a"}`), raw(`{"id":"b"}`)}, "")
		require.NoError(t, err)
		require.NotEmpty(t, v)

		snap, err := s.ReadAll(ctx, CollectionBounties)
		require.NoError(t, err)
		assert.Equal(t, v, snap.Version)
		require.Len(t, snap.Records, 2)
		assert.JSONEq(t, `{"id":"a"}`, string(snap.Records[0]))
		assert.JSONEq(t, `{"id":"b"}`, string(snap.Records[1]))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		s := open(t)
		v1, err := s.WriteAll(ctx, CollectionSubmissions, []json.RawMessage{raw(`{"id":"x"}`)}, "")
		require.NoError(t, err)
		_, err = s.WriteAll(ctx, CollectionSubmissions, []json.RawMessage{raw(`{"id":"y"}`)}, v1)
		require.NoError(t, err)

		_, err = s.WriteAll(ctx, CollectionSubmissions, []json.RawMessage{raw(`{"id":"z"}`)}, v1)
		assert.ErrorIs(t, err, ErrConflict)

		snap, err := s.ReadAll(ctx, CollectionSubmissions)
		require.NoError(t, err)
		require.Len(t, snap.Records, 1)
		assert.JSONEq(t, `{"id":"y"}`, string(snap.Records[0]))
	})

	t.Run("second create conflicts", func(t *testing.T) {
		s := open(t)
		_, err := s.WriteAll(ctx, CollectionBounties, nil, "")
		require.NoError(t, err)
		_, err = s.WriteAll(ctx, CollectionBounties, nil, "")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("collections are independent", func(t *testing.T) {
		s := open(t)
		_, err := s.WriteAll(ctx, CollectionBounties, []json.RawMessage{raw(`{"id":"b1"}`)}, "")
		require.NoError(t, err)

		snap, err := s.ReadAll(ctx, CollectionSubmissions)
		require.NoError(t, err)
		assert.Empty(t, snap.Records)
		assert.Equal(t, Version(""), snap.Version)
	})

	t.Run("unknown collection", func(t *testing.T) {
		s := open(t)
		_, err := s.ReadAll(ctx, "users")
		assert.ErrorIs(t, err, ErrUnknownCollection)
		_, err = s.WriteAll(ctx, "users", nil, "")
		assert.ErrorIs(t, err, ErrUnknownCollection)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) RecordStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) RecordStore {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "bounties.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "bounties.db")

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	v, err := s1.WriteAll(ctx, CollectionBounties, []json.RawMessage{raw(`{"id":"keep"}`)}, "")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	snap, err := s2.ReadAll(ctx, CollectionBounties)
	require.NoError(t, err)
	assert.Equal(t, v, snap.Version)
	require.Len(t, snap.Records, 1)
	assert.JSONEq(t, `{"id":"keep"}`, string(snap.Records[0]))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := []json.RawMessage{raw(`{"id":"a"}`)}
	_, err := s.WriteAll(ctx, CollectionBounties, rec, "")
	require.NoError(t, err)

	rec[0][2] = 'X'
	snap, err := s.ReadAll(ctx, CollectionBounties)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(snap.Records[0]))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().ReadAll(ctx, CollectionBounties)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecodeEncode_PreservesOrder(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}
	records, err := Encode([]item{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	require.NoError(t, err)

	items, err := Decode[item](Snapshot{Records: records})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1"}, {ID: "2"}, {ID: "3"}}, items)
}

func TestDecode_RejectsMalformedRecord(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}
	_, err := Decode[item](Snapshot{Records: []json.RawMessage{raw(`{"id":1}`)}})
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}
