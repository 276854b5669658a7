package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/eventlog"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type eventRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.LedgerEvent, error)
	MarkPublished(ctx context.Context, sequence uint64) error
	MarkFailed(ctx context.Context, sequence uint64, cause error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	LedgerPublisher() *gcppubsub.Publisher
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type dependencyPinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config    config.PubSubConfig
	Logger    *logger.Logger
	DB        dependencyPinger
	PubSub    pubSubClient
	Events    eventRepository
	Publisher publisher
}

// Service relays ledger events from the durable log to Pub/Sub. Events stay
// in the log until a publish succeeds, so delivery is at-least-once and
// consumers dedup on the sequence attribute.
type Service struct {
	cfg            config.PubSubConfig
	logg           *logger.Logger
	db             dependencyPinger
	pubsub         pubSubClient
	events         eventRepository
	pub            publisher
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Events == nil {
		return nil, errors.New("event repository is required")
	}

	pub := params.Publisher
	if pub == nil {
		pub = newGCPPublisher(params.PubSub.LedgerPublisher())
	}
	if pub == nil {
		return nil, errors.New("ledger publisher is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.Config.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	publishTimeout := params.Config.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	return &Service{
		cfg:            params.Config,
		logg:           params.Logger,
		db:             params.DB,
		pubsub:         params.PubSub,
		events:         params.Events,
		pub:            pub,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   poll,
		publishTimeout: publishTimeout,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "event publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "event publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.events.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		fields := s.eventFields(event)

		if err := s.publish(ctx, event); err != nil {
			nextAttempt := event.AttemptCount + 1
			fields["attempt_count"] = nextAttempt
			if nextAttempt >= s.maxAttempts {
				fields["terminal"] = true
			}
			failCtx := s.logg.WithFields(ctx, fields)
			failCtx = s.logg.WithField(failCtx, "error", err.Error())
			s.logg.Warn(failCtx, "ledger event publish failed")
			if markErr := s.events.MarkFailed(ctx, event.Sequence, err); markErr != nil {
				return true, fmt.Errorf("mark failure %d: %w", event.Sequence, markErr)
			}
			continue
		}

		if markErr := s.events.MarkPublished(ctx, event.Sequence); markErr != nil {
			return true, fmt.Errorf("mark published %d: %w", event.Sequence, markErr)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "ledger event published")
	}
	return true, nil
}

func (s *Service) publish(ctx context.Context, event models.LedgerEvent) error {
	msg := &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event),
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

// messageAttributes lets subscribers filter and dedup without decoding the
// payload. The sequence attribute is the dedup key.
func messageAttributes(event models.LedgerEvent) map[string]string {
	attrs := map[string]string{
		"sequence":   strconv.FormatUint(event.Sequence, 10),
		"event_type": string(event.EventType),
		"product_id": strconv.FormatUint(event.ProductID, 10),
		"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	var envelope eventlog.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err == nil && envelope.EventID != "" {
		attrs["event_id"] = envelope.EventID
	}
	return attrs
}

func (s *Service) eventFields(event models.LedgerEvent) map[string]any {
	fields := map[string]any{
		"sequence":      event.Sequence,
		"event_type":    event.EventType,
		"product_id":    event.ProductID,
		"batch_size":    s.batchSize,
		"attempt_count": event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
