package models

import (
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// Product is the authoritative ledger record of a registered batch. IDs are
// allocated by the database sequence and are strictly increasing from 1, so a
// zero ID never denotes a real product. The content hash is computed once at
// registration and never altered.
type Product struct {
	ID            uint64              `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name          string              `json:"name" gorm:"column:name;not null"`
	Variety       string              `json:"variety" gorm:"column:variety;not null"`
	Quantity      int                 `json:"quantity" gorm:"column:quantity;not null"`
	FarmLocation  string              `json:"farm_location" gorm:"column:farm_location;not null"`
	HarvestDate   time.Time           `json:"harvest_date" gorm:"column:harvest_date;not null"`
	QualityGrade  enums.QualityGrade  `json:"quality_grade" gorm:"column:quality_grade;type:text;not null"`
	FarmerAddress string              `json:"farmer_address" gorm:"column:farmer_address;type:text;not null;index"`
	Status        enums.ProductStatus `json:"status" gorm:"column:status;type:text;not null"`
	ContentHash   string              `json:"content_hash" gorm:"column:content_hash;type:char(64);not null"`
	CreatedAt     time.Time           `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}
