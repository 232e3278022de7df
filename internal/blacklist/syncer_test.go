package blacklist

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attackreg/internal/registry"
	"attackreg/internal/store"
)

type fakeReader struct {
	mu        sync.Mutex
	attacks   []registry.Attack
	failAt    map[uint64]bool
	totalErr  error
	refreshes atomic.Int32
}

func (f *fakeReader) TotalAttacks(context.Context) (*big.Int, error) {
	f.refreshes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.totalErr != nil {
		return nil, f.totalErr
	}
	return big.NewInt(int64(len(f.attacks))), nil
}

func (f *fakeReader) Attack(_ context.Context, index *big.Int) (registry.Attack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := index.Uint64()
	if f.failAt[i] {
		return registry.Attack{}, errors.New("eth_call failed")
	}
	return f.attacks[i], nil
}

func attack(ip, typ string, ts int64) registry.Attack {
	return registry.Attack{IP: ip, Type: typ, Timestamp: big.NewInt(ts)}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	reader := &fakeReader{attacks: []registry.Attack{
		attack("10.0.0.1", "SYN flood", 1_700_000_000),
		attack("10.0.0.2", "UDP flood", 1_700_000_100),
	}}
	s := NewSyncer(reader)

	n, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, uint64(1), snap[1].Index)
	assert.Equal(t, "UDP flood", snap[1].Type)
	assert.Equal(t, int64(1_700_000_000), snap[0].Timestamp.Unix())
	assert.True(t, s.Contains("10.0.0.1"))
	assert.False(t, s.Contains("10.0.0.3"))
	assert.False(t, s.LastSync().IsZero())

	// 修改副本不影响快照
	snap[0].IP = "mutated"
	assert.Equal(t, "10.0.0.1", s.Snapshot()[0].IP)
}

func TestRefreshSkipsFailedRecords(t *testing.T) {
	reader := &fakeReader{
		attacks: []registry.Attack{attack("a", "x", 1), attack("b", "x", 2), attack("c", "x", 3)},
		failAt:  map[uint64]bool{1: true},
	}
	s := NewSyncer(reader)

	n, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, s.Contains("b"))
	assert.True(t, s.Contains("c"))
}

func TestRefreshKeepsSnapshotWhenTotalFails(t *testing.T) {
	reader := &fakeReader{attacks: []registry.Attack{attack("a", "x", 1)}}
	s := NewSyncer(reader)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	reader.mu.Lock()
	reader.totalErr = errors.New("connection refused")
	reader.mu.Unlock()

	_, err = s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, s.Contains("a"))
}

type bogusTotalReader struct {
	total *big.Int
	calls atomic.Int32
}

func (r *bogusTotalReader) TotalAttacks(context.Context) (*big.Int, error) { return r.total, nil }

func (r *bogusTotalReader) Attack(context.Context, *big.Int) (registry.Attack, error) {
	r.calls.Add(1)
	return registry.Attack{}, nil
}

func TestRefreshRejectsImplausibleTotal(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	cases := map[string]*big.Int{
		"above limit": big.NewInt(1 << 62),
		"uint256 max": huge,
		"negative":    big.NewInt(-1),
	}
	for name, total := range cases {
		t.Run(name, func(t *testing.T) {
			reader := &bogusTotalReader{total: total}
			s := NewSyncer(reader)

			var err error
			require.NotPanics(t, func() { _, err = s.Refresh(context.Background()) })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exceeds limit")
			assert.Zero(t, reader.calls.Load())
			assert.Empty(t, s.Snapshot())
		})
	}
}

func TestRefreshHonoursCustomLimit(t *testing.T) {
	reader := &fakeReader{attacks: []registry.Attack{attack("a", "x", 1), attack("b", "x", 2)}}

	_, err := NewSyncer(reader, WithMaxAttacks(1)).Refresh(context.Background())
	require.Error(t, err)

	n, err := NewSyncer(reader, WithMaxAttacks(2)).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRefreshPersistsSnapshot(t *testing.T) {
	db, err := store.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reader := &fakeReader{attacks: []registry.Attack{attack("10.0.0.1", "SYN flood", 42)}}
	s := NewSyncer(reader, WithPersister(db))

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)

	rows, err := db.ListAttacks(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10.0.0.1", rows[0].IP)
	assert.Equal(t, int64(42), rows[0].Timestamp)
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	reader := &fakeReader{attacks: []registry.Attack{attack("a", "x", 1)}}
	s := NewSyncer(reader)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return reader.refreshes.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.True(t, s.Contains("a"))
}
