package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attackreg/internal/submitter"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		assert.Equal(t, InMemorySQLiteDSN, db.Path())
		require.NoError(t, db.ReplaceAttacks(context.Background(), []AttackRecord{{Position: 0, IP: "1.1.1.1"}}))
		assert.NoError(t, db.Close())
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deeper", "attackreg.db")
		db, err := Open(path, true)
		require.NoError(t, err)
		require.NoError(t, db.Ping(context.Background()))
		assert.FileExists(t, path)
		assert.NoError(t, db.Close())
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		db, err := Open(path, true)
		require.NoError(t, err)
		require.NoError(t, db.ReplaceAttacks(context.Background(), []AttackRecord{{Position: 3, IP: "10.0.0.9"}}))
		require.NoError(t, db.Close())

		db, err = Open(path, false)
		require.NoError(t, err)
		defer db.Close()
		rows, err := db.ListAttacks(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "10.0.0.9", rows[0].IP)
	})

	for name, path := range map[string]string{"empty path": " ", "query in path": "a.db?mode=ro"} {
		t.Run(name, func(t *testing.T) {
			db, err := Open(path, true)
			require.Error(t, err)
			require.Nil(t, db)
		})
	}
}

func TestReplaceAttacks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ReplaceAttacks(ctx, []AttackRecord{
		{Position: 1, IP: "10.0.0.2", AttackType: "UDP flood", Timestamp: 20},
		{Position: 0, IP: "10.0.0.1", AttackType: "SYN flood", Timestamp: 10},
	}))

	got, err := db.ListAttacks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.1", got[0].IP)
	assert.Equal(t, "UDP flood", got[1].AttackType)
	assert.False(t, got[0].SyncedAt.IsZero())

	// 再次替换时旧记录全部消失
	require.NoError(t, db.ReplaceAttacks(ctx, []AttackRecord{{Position: 0, IP: "10.0.0.9"}}))
	got, err = db.ListAttacks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.9", got[0].IP)

	byIP, err := db.AttacksByIP(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.Len(t, byIP, 1)

	require.NoError(t, db.ReplaceAttacks(ctx, nil))
	got, err = db.ListAttacks(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceAttacksRollsBackOnDuplicatePosition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.ReplaceAttacks(ctx, []AttackRecord{{Position: 0, IP: "10.0.0.1"}}))

	err := db.ReplaceAttacks(ctx, []AttackRecord{{Position: 3, IP: "a"}, {Position: 3, IP: "b"}})
	require.Error(t, err)

	got, err := db.ListAttacks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.1", got[0].IP)
}

func TestJournalLifecycle(t *testing.T) {
	j := NewJournal(newTestDB(t))
	ctx := context.Background()
	from := common.HexToAddress("0xa1")
	target := common.HexToAddress("0xb2")
	txID := common.HexToHash("0x01").Hex()

	require.NoError(t, j.Record(ctx, submitter.Entry{
		TxID: txID, From: from, Target: target, Function: "logAttack", Gas: 52_380,
		Status: submitter.StatusSent, Timestamp: time.Now(),
	}))

	pending, err := j.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, j.Record(ctx, submitter.Entry{TxID: txID, Status: submitter.StatusConfirmed, Block: 99}))

	s, err := j.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, submitter.StatusConfirmed, s.Status)
	assert.Equal(t, uint64(99), s.BlockNumber)
	assert.Equal(t, uint64(52_380), s.Gas)
	assert.Equal(t, from.Hex(), s.Sender)
	assert.Equal(t, "logAttack", s.Function)

	pending, err = j.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournalFailuresWithoutTxID(t *testing.T) {
	db := newTestDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, j.Record(ctx, submitter.Entry{Function: "deleteAttack", Status: submitter.StatusFailed, Error: "[ESTIMATION] estimate: reverted"}))
	}

	var count int64
	require.NoError(t, db.Client().Model(&Submission{}).Where("status = ?", submitter.StatusFailed).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestJournalUpdateStatus(t *testing.T) {
	j := NewJournal(newTestDB(t))
	ctx := context.Background()
	txID := common.HexToHash("0x02").Hex()

	require.Error(t, j.UpdateStatus(ctx, txID, submitter.StatusConfirmed, 1))

	require.NoError(t, j.Record(ctx, submitter.Entry{TxID: txID, Status: submitter.StatusUnknown}))
	require.NoError(t, j.UpdateStatus(ctx, txID, submitter.StatusReverted, 12))

	s, err := j.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, submitter.StatusReverted, s.Status)
	assert.Equal(t, uint64(12), s.BlockNumber)

	_, err = j.Get(ctx, "0xmissing")
	require.Error(t, err)
}
