package models

import (
	"encoding/json"
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// LedgerEvent is one entry in the durable, ordered state-change log. The
// sequence is assigned by the database and is the consumer-side dedup and
// replay cursor. PublishedAt/AttemptCount/LastError are relay bookkeeping for
// the external Pub/Sub publisher; the event payload itself is immutable.
type LedgerEvent struct {
	Sequence     uint64                `json:"sequence" gorm:"column:sequence;primaryKey;autoIncrement"`
	EventType    enums.LedgerEventType `json:"event_type" gorm:"column:event_type;type:text;not null"`
	ProductID    uint64                `json:"product_id" gorm:"column:product_id;not null;index"`
	Payload      json.RawMessage       `json:"payload" gorm:"column:payload;type:jsonb;not null"`
	CreatedAt    time.Time             `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time            `json:"published_at,omitempty" gorm:"column:published_at"`
	AttemptCount int                   `json:"attempt_count,omitempty" gorm:"column:attempt_count;not null;default:0"`
	LastError    *string               `json:"last_error,omitempty" gorm:"column:last_error"`
}
