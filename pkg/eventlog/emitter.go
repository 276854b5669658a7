package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

const envelopeVersion = 1

// Event describes one state change to append to the log.
type Event struct {
	Type       enums.LedgerEventType
	ProductID  uint64
	Data       any
	OccurredAt time.Time
}

// Emitter appends ledger events inside the transaction of the operation that
// produced them, guaranteeing exactly one durable event per state change.
type Emitter struct {
	repo *Repository
	logg *logger.Logger
}

func NewEmitter(repo *Repository, logg *logger.Logger) *Emitter {
	return &Emitter{repo: repo, logg: logg}
}

// Emit serializes the event into a versioned envelope and appends it.
func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.Type.IsValid() {
		return errors.New("invalid event type")
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	envelope := PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := &models.LedgerEvent{
		EventType: event.Type,
		ProductID: event.ProductID,
		Payload:   json.RawMessage(payloadJSON),
	}
	if err := e.repo.Insert(tx, row); err != nil {
		return err
	}
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"event_id":   envelope.EventID,
			"event_type": event.Type,
			"product_id": event.ProductID,
		})
		e.logg.Info(logCtx, "ledger event appended")
	}
	return nil
}
