package registry

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct{ id uuid.UUID }

func (f fakeSession) ID() uuid.UUID { return f.id }

func TestInsertGetRemove(t *testing.T) {
	r := NewRegistry(0)
	id := uuid.New()
	require.NoError(t, r.Insert(id, fakeSession{id: id}))

	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, got.ID())
	assert.Equal(t, 1, r.Len())

	removed, ok := r.Remove(id)
	require.True(t, ok)
	assert.Equal(t, id, removed.ID())
	assert.Equal(t, 0, r.Len())

	_, ok = r.Get(id)
	assert.False(t, ok)
}

func TestInsertDuplicateFails(t *testing.T) {
	r := NewRegistry(0)
	id := uuid.New()
	require.NoError(t, r.Insert(id, fakeSession{id: id}))
	err := r.Insert(id, fakeSession{id: id})
	assert.Error(t, err)
}

func TestMaxClientsRejectsInsert(t *testing.T) {
	r := NewRegistry(1)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, r.Insert(a, fakeSession{id: a}))
	err := r.Insert(b, fakeSession{id: b})
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestPeakTracksHighWaterMark(t *testing.T) {
	r := NewRegistry(0)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, r.Insert(id, fakeSession{id: id}))
	}
	r.Remove(ids[0])
	r.Remove(ids[1])
	assert.Equal(t, 3, r.Peak())
	assert.Equal(t, 1, r.Len())
}

func TestIterateSnapshot(t *testing.T) {
	r := NewRegistry(0)
	for i := 0; i < 10; i++ {
		id := uuid.New()
		require.NoError(t, r.Insert(id, fakeSession{id: id}))
	}
	seen := 0
	r.Iterate(func(s Session) bool {
		seen++
		return true
	})
	assert.Equal(t, 10, seen)
}

func TestConcurrentInsertGetRemove(t *testing.T) {
	r := NewRegistry(0)
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 100)
	for i := range ids {
		ids[i] = uuid.New()
	}

	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Insert(id, fakeSession{id: id})
			_, _ = r.Get(id)
		}()
	}
	wg.Wait()
	assert.Equal(t, len(ids), r.Len())
}
