package eventlog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
)

// Repository persists and reads the append-only ledger event log.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends an event inside the caller's transaction. The event must
// commit or roll back with the ledger mutation that produced it.
func (r *Repository) Insert(tx *gorm.DB, event *models.LedgerEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

// FetchAfter returns up to limit events with a sequence strictly greater than
// afterSequence, in sequence order. This is the replay primitive: a consumer
// joining late reads from sequence zero and misses nothing.
func (r *Repository) FetchAfter(ctx context.Context, afterSequence uint64, limit int) ([]models.LedgerEvent, error) {
	var rows []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("sequence > ?", afterSequence).
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// LatestSequence returns the highest assigned sequence, or zero when the log
// is empty.
func (r *Repository) LatestSequence(ctx context.Context) (uint64, error) {
	var seq *uint64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Select("MAX(sequence)").
		Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq == nil {
		return 0, nil
	}
	return *seq, nil
}

// FetchUnpublished returns relay candidates that have not been published and
// have not exhausted their attempts.
func (r *Repository) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.LedgerEvent, error) {
	var rows []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkPublished records a successful relay of the event.
func (r *Repository) MarkPublished(ctx context.Context, sequence uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("sequence = ?", sequence).
		Updates(map[string]any{
			"published_at": time.Now(),
		}).Error
}

// MarkFailed records a failed relay attempt.
func (r *Repository) MarkFailed(ctx context.Context, sequence uint64, cause error) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("sequence = ?", sequence).
		Updates(map[string]any{
			"last_error":    cause.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}
