package models

import (
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// ProductTransaction is one append-only custody event. The genesis harvest
// transaction carries an empty FromAddress. Ordered by OccurredAt ascending,
// a product's transactions reconstruct its full status history.
type ProductTransaction struct {
	ID              uint64                `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ProductID       uint64                `json:"product_id" gorm:"column:product_id;not null;index"`
	FromAddress     string                `json:"from_address" gorm:"column:from_address;type:text;not null"`
	ToAddress       string                `json:"to_address" gorm:"column:to_address;type:text;not null"`
	TransactionType enums.TransactionType `json:"transaction_type" gorm:"column:transaction_type;type:text;not null"`
	NewStatus       enums.ProductStatus   `json:"new_status" gorm:"column:new_status;type:text;not null"`
	Location        string                `json:"location" gorm:"column:location;not null"`
	OccurredAt      time.Time             `json:"occurred_at" gorm:"column:occurred_at;not null"`
	AdditionalData  string                `json:"additional_data" gorm:"column:additional_data;not null"`
}
