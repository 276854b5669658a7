package models

import (
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// IndexRecord is the denormalized, eventually consistent projection of a
// ledger product kept for fast lookup. It is never authoritative: on any
// conflict the ledger wins, and the whole set is rebuildable via backfill.
type IndexRecord struct {
	BatchID       string              `json:"batch_id" gorm:"column:batch_id;type:text;primaryKey"`
	ProductID     uint64              `json:"product_id" gorm:"column:product_id;not null;uniqueIndex"`
	ProductName   string              `json:"product_name" gorm:"column:product_name;not null"`
	Variety       string              `json:"variety" gorm:"column:variety;not null"`
	Quantity      int                 `json:"quantity" gorm:"column:quantity;not null"`
	FarmerAddress string              `json:"farmer_address" gorm:"column:farmer_address;type:text;not null"`
	FarmLocation  string              `json:"farm_location" gorm:"column:farm_location;not null"`
	HarvestDate   time.Time           `json:"harvest_date" gorm:"column:harvest_date;not null"`
	QualityGrade  enums.QualityGrade  `json:"quality_grade" gorm:"column:quality_grade;type:text;not null"`
	Status        enums.ProductStatus `json:"status" gorm:"column:status;type:text;not null"`
	QRToken       string              `json:"qr_token" gorm:"column:qr_token;type:text;not null;uniqueIndex"`
	ContentHash   string              `json:"content_hash" gorm:"column:content_hash;type:char(64);not null"`
	IndexedAt     time.Time           `json:"indexed_at" gorm:"column:indexed_at;autoCreateTime"`
}

// IndexCheckpoint stores the last event sequence a consumer has applied.
type IndexCheckpoint struct {
	Consumer     string    `json:"consumer" gorm:"column:consumer;type:text;primaryKey"`
	LastSequence uint64    `json:"last_sequence" gorm:"column:last_sequence;not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}
