package indexer

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
)

// Repository manages the denormalized index records. The index is a cache of
// the ledger, so every write is an upsert keyed by batch id: replaying an
// event converges on the same row instead of failing.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, record *models.IndexRecord) error
	FindByBatchID(ctx context.Context, batchID string) (*models.IndexRecord, error)
	FindByQRToken(ctx context.Context, token string) (*models.IndexRecord, error)
	FindByProductID(ctx context.Context, productID uint64) (*models.IndexRecord, error)
	IndexedProductIDs(ctx context.Context) (map[uint64]struct{}, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an index repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert creates the record or refreshes the mutable projection columns. The
// QR token and indexed_at are minted on first insert and never rotated by a
// replay.
func (r *repository) Upsert(ctx context.Context, record *models.IndexRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "batch_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_name", "variety", "quantity", "farmer_address",
				"farm_location", "harvest_date", "quality_grade", "status",
				"content_hash",
			}),
		}).
		Create(record).Error
}

func (r *repository) FindByBatchID(ctx context.Context, batchID string) (*models.IndexRecord, error) {
	var record models.IndexRecord
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByQRToken(ctx context.Context, token string) (*models.IndexRecord, error) {
	var record models.IndexRecord
	if err := r.db.WithContext(ctx).
		Where("qr_token = ?", token).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByProductID(ctx context.Context, productID uint64) (*models.IndexRecord, error) {
	var record models.IndexRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) IndexedProductIDs(ctx context.Context) (map[uint64]struct{}, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&models.IndexRecord{}).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	indexed := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		indexed[id] = struct{}{}
	}
	return indexed, nil
}
