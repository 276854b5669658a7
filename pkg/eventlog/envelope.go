package eventlog

import (
	"encoding/json"
	"time"

	"github.com/agrichain/agrichain-backend/pkg/enums"
)

// PayloadEnvelope is the stable payload structure stored in ledger_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// ProductRegisteredPayload is the data half of a product_registered event.
// The accompanying row's sequence is the replay/dedup cursor.
type ProductRegisteredPayload struct {
	ProductID     uint64 `json:"productId"`
	FarmerAddress string `json:"farmerAddress"`
}

// ProductTransferredPayload is the data half of a product_transferred event.
type ProductTransferredPayload struct {
	ProductID   uint64              `json:"productId"`
	FromAddress string              `json:"fromAddress"`
	ToAddress   string              `json:"toAddress"`
	NewStatus   enums.ProductStatus `json:"newStatus"`
}
