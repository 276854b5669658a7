package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// Repository manages persistence for products and their custody transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id uint64) (*models.Product, error)
	ListProductsByFarmer(ctx context.Context, farmerAddress string) ([]models.Product, error)
	ListProductIDs(ctx context.Context) ([]uint64, error)
	AdvanceProductStatus(ctx context.Context, id uint64, from, to enums.ProductStatus) (bool, error)
	AppendTransaction(ctx context.Context, txn *models.ProductTransaction) error
	ListTransactions(ctx context.Context, productID uint64) ([]models.ProductTransaction, error)
	LatestTransaction(ctx context.Context, productID uint64) (*models.ProductTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProductsByFarmer(ctx context.Context, farmerAddress string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("farmer_address = ?", farmerAddress).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListProductIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AdvanceProductStatus performs a compare-and-set on the product status. The
// WHERE clause pins the expected current status, so of two concurrent
// transfers exactly one observes a row update; the loser sees zero rows and
// must re-read. This is what serializes transitions per product.
func (r *repository) AdvanceProductStatus(ctx context.Context, id uint64, from, to enums.ProductStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.ProductTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, productID uint64) ([]models.ProductTransaction, error) {
	var txns []models.ProductTransaction
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("occurred_at ASC, id ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) LatestTransaction(ctx context.Context, productID uint64) (*models.ProductTransaction, error) {
	var txn models.ProductTransaction
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("occurred_at DESC, id DESC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}
