package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// serialTxRunner admits one transaction at a time, the way a single-writer
// sqlite connection would. Callers still race at the allocator boundary.
type serialTxRunner struct {
	mu sync.Mutex
	db *gorm.DB
}

func (r *serialTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS order_sequences (
  date_key TEXT PRIMARY KEY,
  value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestAllocatorSequencesAreDenseAndMonotonic(t *testing.T) {
	db := setupSequenceTestDB(t)
	allocator, err := NewAllocator(testTxRunner{db: db}, 0)
	require.NoError(t, err)
	ctx := context.Background()

	dateKey := "20260314"
	const allocations = 50
	seen := make(map[int64]bool, allocations)
	var previous int64
	for i := 0; i < allocations; i++ {
		seq, err := allocator.Allocate(ctx, dateKey)
		require.NoError(t, err)
		assert.Greater(t, seq, previous)
		assert.False(t, seen[seq], "sequence %d issued twice", seq)
		seen[seq] = true
		previous = seq
	}
	assert.Equal(t, int64(allocations), previous)
}

func TestAllocatorConcurrentCallersGetDistinctSequences(t *testing.T) {
	db := setupSequenceTestDB(t)
	allocator, err := NewAllocator(&serialTxRunner{db: db}, 0)
	require.NoError(t, err)
	ctx := context.Background()

	dateKey := "20260401"
	const callers = 1000
	results := make(chan int64, callers)
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := allocator.Allocate(ctx, dateKey)
			if err != nil {
				errs <- err
				return
			}
			results <- seq
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent allocate failed: %v", err)
	}
	seen := make(map[int64]bool, callers)
	for seq := range results {
		assert.False(t, seen[seq], "sequence %d issued twice", seq)
		seen[seq] = true
	}
	require.Len(t, seen, callers)
	assert.True(t, seen[int64(callers)], "highest sequence missing")
}

func TestAllocatorDateKeysAreIndependent(t *testing.T) {
	db := setupSequenceTestDB(t)
	allocator, err := NewAllocator(testTxRunner{db: db}, 0)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := allocator.Allocate(ctx, "20270101")
	require.NoError(t, err)
	_, err = allocator.Allocate(ctx, "20270101")
	require.NoError(t, err)

	other, err := allocator.Allocate(ctx, "20270102")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(1), other)
}

func TestAllocateTxRejectsMalformedDateKey(t *testing.T) {
	db := setupSequenceTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := AllocateTx(ctx, tx, "2026-03-14")
		return txErr
	})
	assert.Error(t, err)
}

func TestDateKeyRendersUTCCalendarDay(t *testing.T) {
	eastern := time.FixedZone("UTC-5", -5*60*60)
	// 23:30 local on March 14 is already March 15 in UTC.
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, eastern)
	assert.Equal(t, "20260315", DateKey(local))
	assert.Equal(t, "20260314", DateKey(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)))
}

func TestOrderNumberFormat(t *testing.T) {
	assert.Equal(t, "VC202603140007", OrderNumber("20260314", 7))
	assert.Equal(t, "VC202603140042", OrderNumber("20260314", 42))
	// The sequence widens past four digits rather than wrapping.
	assert.Equal(t, "VC2026031412345", OrderNumber("20260314", 12345))
}
