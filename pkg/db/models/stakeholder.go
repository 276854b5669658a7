package models

import (
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// Stakeholder represents a registered supply-chain participant. Registration
// is final: rows are never updated or deleted.
type Stakeholder struct {
	Address      string                `json:"address" gorm:"column:address;type:text;primaryKey"`
	Role         enums.StakeholderRole `json:"role" gorm:"column:role;type:text;not null"`
	Name         string                `json:"name" gorm:"column:name;not null"`
	Organization string                `json:"organization" gorm:"column:organization;not null"`
	RegisteredAt time.Time             `json:"registered_at" gorm:"column:registered_at;autoCreateTime"`
}
