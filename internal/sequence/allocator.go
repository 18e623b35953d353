package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
)

const (
	dateKeyLayout  = "20060102"
	orderPrefix    = "VC"
	defaultRetries = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Allocator hands out 1-based sequence numbers unique per date key. It never
// scans existing orders: each date key owns a counter row advanced by an
// atomic upsert-increment, so two concurrent callers can never read the same
// maximum and write the same next value.
type Allocator struct {
	tx       txRunner
	attempts int
}

// NewAllocator builds an allocator with a bounded retry budget for transient
// commit failures.
func NewAllocator(tx txRunner, attempts int) (*Allocator, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if attempts <= 0 {
		attempts = defaultRetries
	}
	return &Allocator{tx: tx, attempts: attempts}, nil
}

// Allocate returns the next sequence number for the date key in its own
// transaction. Numbers are unique and monotonically increasing per date key;
// gaps are possible when a caller's enclosing work aborts after allocation.
func (a *Allocator) Allocate(ctx context.Context, dateKey string) (int64, error) {
	var seq int64
	var lastErr error
	for attempt := 0; attempt < a.attempts; attempt++ {
		err := a.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			seq, txErr = AllocateTx(ctx, tx, dateKey)
			return txErr
		})
		if err == nil {
			return seq, nil
		}
		lastErr = err
	}
	return 0, pkgerrors.Wrap(pkgerrors.CodeAllocationExhausted, lastErr,
		fmt.Sprintf("sequence allocation exhausted after %d attempts", a.attempts))
}

// AllocateTx advances the counter inside the caller's transaction. The
// incremented row stays locked until the transaction commits, so callers
// creating an order atomically with its number serialize per date key.
func AllocateTx(ctx context.Context, tx *gorm.DB, dateKey string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}
	if len(dateKey) != len(dateKeyLayout) {
		return 0, fmt.Errorf("invalid date key %q", dateKey)
	}

	row := models.OrderSequence{DateKey: dateKey, Value: 1}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      gorm.Expr("value + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	// Re-read inside the transaction: the upsert locked the row, and the
	// readback observes our own increment.
	var current models.OrderSequence
	if err := tx.WithContext(ctx).Where("date_key = ?", dateKey).First(&current).Error; err != nil {
		return 0, err
	}
	return current.Value, nil
}

// DateKey renders the calendar-day key for an instant, in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// OrderNumber renders the canonical order number: VC<YYYYMMDD><4-digit seq>.
func OrderNumber(dateKey string, seq int64) string {
	return fmt.Sprintf("%s%s%04d", orderPrefix, dateKey, seq)
}
