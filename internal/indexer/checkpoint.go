package indexer

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
)

// CheckpointRepository stores the per-consumer replay cursor. A consumer that
// crashes resumes from its last saved sequence and re-reads anything after
// it, which is where the at-least-once guarantee comes from.
type CheckpointRepository interface {
	Get(ctx context.Context, consumer string) (uint64, error)
	Save(ctx context.Context, consumer string, sequence uint64) error
}

type checkpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository returns a checkpoint store bound to the database.
func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Get(ctx context.Context, consumer string) (uint64, error) {
	var checkpoint models.IndexCheckpoint
	err := r.db.WithContext(ctx).
		Where("consumer = ?", consumer).
		First(&checkpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return checkpoint.LastSequence, nil
}

func (r *checkpointRepository) Save(ctx context.Context, consumer string, sequence uint64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "consumer"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_sequence", "updated_at"}),
		}).
		Create(&models.IndexCheckpoint{
			Consumer:     consumer,
			LastSequence: sequence,
		}).Error
}
