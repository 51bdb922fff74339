package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/adapters/redis"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore adds latency so unserialized read-modify-write cycles lose updates.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, id string) (*domain.State, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func TestManager_UpdateSerializes(t *testing.T) {
	store := slowStore{memory.NewStore()}
	mgr := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, _, err := mgr.LoadOrStart(ctx, id, mgr.StartAt(id, "Q1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Update(ctx, id, func(s *domain.State) (*domain.State, error) {
				next := s.Snapshot()
				next.History = append(next.History, "x")
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, state.History, 21)
}

func TestManager_LoadOrStart(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mgr := session.NewManager(memory.NewStore(), session.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	id := "atomic-init"

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, isNew, err := mgr.LoadOrStart(ctx, id, mgr.StartAt(id, "Q1"))
			assert.NoError(t, err)
			assert.NotNil(t, state)
			if isNew {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	state, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Q1", state.CurrentNodeID)
	assert.Equal(t, fixed, state.CreatedAt)
}

func TestManager_UpdateErrorSkipsSave(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	_, _, err := mgr.LoadOrStart(ctx, "s", mgr.StartAt("s", "Q1"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = mgr.Update(ctx, "s", func(s *domain.State) (*domain.State, error) {
		next := s.Snapshot()
		next.CurrentNodeID = "Q9"
		return next, boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := mgr.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "Q1", state.CurrentNodeID)
}

func TestManager_UpdateMissingSession(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	_, err := mgr.Update(context.Background(), "nope", func(s *domain.State) (*domain.State, error) {
		return s, nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	mgr := session.NewManager(store,
		session.WithLocker(redis.NewLocker(client, store.Prefix())),
		session.WithLockTTL(time.Second),
	)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "s1", func(ctx context.Context) error {
		assert.True(t, mr.Exists(store.Prefix()+"lock:s1"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(store.Prefix()+"lock:s1"))
}
