package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, opts ...Option) (*Guard, *badger.Stores) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	g, err := NewGuard(stores.Fingerprints, opts...)
	require.NoError(t, err)
	return g, stores
}

func TestNewGuard_Validation(t *testing.T) {
	_, err := NewGuard(nil)
	assert.Error(t, err)

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewGuard(stores.Fingerprints, WithLease(0))
	assert.ErrorIs(t, err, ErrInvalidLease)
	_, err = NewGuard(stores.Fingerprints, WithLogger(nil))
	assert.Error(t, err)
}

func TestGuard_ReserveCommitDuplicate(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	res, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.NotEmpty(t, res.Token)

	require.NoError(t, g.Commit(ctx, "fp-1", res.Token, []string{"m1", "m2"}))

	dup, err := g.CheckAndReserve(ctx, "fp-1", "item-b")
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Empty(t, dup.Token)
	assert.Equal(t, "item-a", dup.ItemID)
	assert.Equal(t, []string{"m1", "m2"}, dup.MessageIDs)

	rec, err := g.Lookup(ctx, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, core.ReservationCommitted, rec.State)
}

func TestGuard_HeldReservationIsTransient(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	_, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)

	_, err = g.CheckAndReserve(ctx, "fp-1", "item-b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReservationHeld))
	assert.Equal(t, core.KindTransient, core.KindOf(err))
	assert.Equal(t, core.CodeDedup, core.CodeOf(err, ""))

	// The holder retrying is not blocked by its own reservation
	again, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)
	assert.NotEmpty(t, again.Token)
}

func TestGuard_ReleaseFreesFingerprint(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	res, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, "fp-1", res.Token))
	require.NoError(t, g.Release(ctx, "fp-1", ""))

	rec, err := g.Lookup(ctx, "fp-1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	res, err = g.CheckAndReserve(ctx, "fp-1", "item-b")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestGuard_CommitWithStaleToken(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	first, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)
	second, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)

	err = g.Commit(ctx, "fp-1", first.Token, []string{"m1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrTokenMismatch))
	assert.Equal(t, core.KindPermanent, core.KindOf(err))

	require.NoError(t, g.Commit(ctx, "fp-1", second.Token, []string{"m1"}))
}

func TestGuard_ExpiredLeaseIsTakenOver(t *testing.T) {
	g, _ := newTestGuard(t, WithLease(time.Millisecond))
	ctx := context.Background()

	_, err := g.CheckAndReserve(ctx, "fp-1", "item-a")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	res, err := g.CheckAndReserve(ctx, "fp-1", "item-b")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestGuard_ConcurrentReserveSingleWinner(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := g.CheckAndReserve(ctx, "fp-race", "item-"+string(rune('a'+i)))
			if err != nil {
				assert.Equal(t, core.KindTransient, core.KindOf(err))
				return
			}
			if res.Token != "" {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
