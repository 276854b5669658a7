package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/eventlog"
	"github.com/agrichain/agrichain-backend/pkg/identifier"
	"github.com/agrichain/agrichain-backend/pkg/logger"
	"github.com/agrichain/agrichain-backend/pkg/metrics"
	"github.com/agrichain/agrichain-backend/pkg/redis"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultFetchRetries = 5
	defaultFetchBackoff = 200 * time.Millisecond
	maxBackoff          = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// productSource is the authoritative read surface the reconciler trusts.
// Event payloads are only wake-up signals; the indexed fields always come
// from a fresh ledger read.
type productSource interface {
	GetProduct(ctx context.Context, id uint64) (*models.Product, error)
	ListProductIDs(ctx context.Context) ([]uint64, error)
}

// ReconcilerParams collects the reconciler dependencies.
type ReconcilerParams struct {
	Config  config.IndexerConfig
	Logger  *logger.Logger
	Ledger  ledger.Service
	Events  *eventlog.Repository
	Repo    Repository
	Cursors CheckpointRepository
	Claims  redis.ClaimStore
	Metrics *metrics.WorkerMetrics
}

// Reconciler follows the ledger event log and converges the index on the
// ledger state. It is safe to run several replicas: a Redis test-and-set
// claim per event sequence keeps concurrent workers from double-indexing.
type Reconciler struct {
	cfg     config.IndexerConfig
	logg    *logger.Logger
	source  productSource
	events  *eventlog.Repository
	repo    Repository
	cursors CheckpointRepository
	claims  redis.ClaimStore
	metrics *metrics.WorkerMetrics
}

// NewReconciler validates dependencies and applies config defaults.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service is required")
	}
	if params.Events == nil {
		return nil, errors.New("event repository is required")
	}
	if params.Repo == nil {
		return nil, errors.New("index repository is required")
	}
	if params.Cursors == nil {
		return nil, errors.New("checkpoint repository is required")
	}

	cfg := params.Config
	if cfg.Consumer == "" {
		cfg.Consumer = "product-indexer"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = defaultFetchRetries
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = defaultFetchBackoff
	}

	return &Reconciler{
		cfg:     cfg,
		logg:    params.Logger,
		source:  params.Ledger,
		events:  params.Events,
		repo:    params.Repo,
		cursors: params.Cursors,
		claims:  params.Claims,
		metrics: params.Metrics,
	}, nil
}

// Run polls the event log until the context is canceled. Batch errors back
// off exponentially with jitter; an idle log sleeps one poll interval.
func (r *Reconciler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := r.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "indexer context canceled")
			return ctx.Err()
		default:
		}

		processed, err := r.ProcessBatch(ctx)
		if err != nil {
			r.logg.Error(ctx, "indexer batch error", err)
			backoff = nextBackoff(backoff, r.cfg.PollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = r.cfg.PollInterval

		if processed {
			continue
		}

		if err := sleep(ctx, withJitter(r.cfg.PollInterval)); err != nil {
			return err
		}
	}
}

// ProcessBatch reads one batch of events past the checkpoint and applies
// them. It reports whether any events were seen so the caller can skip the
// idle sleep.
func (r *Reconciler) ProcessBatch(ctx context.Context) (bool, error) {
	started := time.Now()

	cursor, err := r.cursors.Get(ctx, r.cfg.Consumer)
	if err != nil {
		return false, fmt.Errorf("load checkpoint: %w", err)
	}

	events, err := r.events.FetchAfter(ctx, cursor, r.cfg.BatchSize)
	if err != nil {
		return false, fmt.Errorf("fetch events after %d: %w", cursor, err)
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		r.handleEvent(ctx, event)
		cursor = event.Sequence
	}

	if err := r.cursors.Save(ctx, r.cfg.Consumer, cursor); err != nil {
		return true, fmt.Errorf("save checkpoint %d: %w", cursor, err)
	}

	r.metrics.SetCheckpoint(r.cfg.Consumer, cursor)
	r.metrics.ObserveBatch(r.cfg.Consumer, time.Since(started))
	return true, nil
}

// handleEvent indexes the product an event refers to. Index persistence
// failures are logged and the claim released so a later replay or backfill
// can repair the record; they never stall the follower or touch the ledger.
func (r *Reconciler) handleEvent(ctx context.Context, event models.LedgerEvent) {
	logCtx := r.logg.WithSequence(ctx, event.Sequence)
	logCtx = r.logg.WithProductID(logCtx, event.ProductID)

	claimed, claimKey, err := r.claimEvent(ctx, event.Sequence)
	if err != nil {
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "event claim check failed, indexing anyway")
	} else if !claimed {
		r.logg.Info(logCtx, "event already claimed, skipping")
		return
	}

	if err := r.indexProduct(ctx, event.ProductID); err != nil {
		r.metrics.IncFailed(r.cfg.Consumer)
		r.logg.Error(logCtx, "indexing product failed", err)
		r.releaseClaim(ctx, claimKey)
		return
	}

	r.metrics.IncProcessed(r.cfg.Consumer)
	r.logg.Info(logCtx, "product indexed")
}

func (r *Reconciler) claimEvent(ctx context.Context, sequence uint64) (bool, string, error) {
	if r.claims == nil {
		return true, "", nil
	}
	key := r.claims.ClaimKey(r.cfg.Consumer, strconv.FormatUint(sequence, 10))
	won, err := r.claims.SetNX(ctx, key, "1", r.cfg.ClaimTTL)
	if err != nil {
		return false, key, err
	}
	return won, key, nil
}

func (r *Reconciler) releaseClaim(ctx context.Context, key string) {
	if r.claims == nil || key == "" {
		return
	}
	if err := r.claims.Del(ctx, key); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "releasing event claim failed")
	}
}

// indexProduct fetches the authoritative record and upserts the projection.
// The ledger read retries with exponential backoff: right after a commit a
// read replica may briefly lag the event log.
func (r *Reconciler) indexProduct(ctx context.Context, productID uint64) error {
	var product *models.Product
	backoff := retry.WithMaxRetries(uint64(r.cfg.FetchRetries), retry.NewExponential(r.cfg.FetchBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		product, err = r.source.GetProduct(ctx, productID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch product %d: %w", productID, err)
	}

	record := &models.IndexRecord{
		BatchID:       identifier.BatchID(product.ID),
		ProductID:     product.ID,
		ProductName:   product.Name,
		Variety:       product.Variety,
		Quantity:      product.Quantity,
		FarmerAddress: product.FarmerAddress,
		FarmLocation:  product.FarmLocation,
		HarvestDate:   product.HarvestDate,
		QualityGrade:  product.QualityGrade,
		Status:        product.Status,
		QRToken:       identifier.QRToken(product.ID, time.Now()),
		ContentHash:   product.ContentHash,
	}
	if err := r.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert index record %s: %w", record.BatchID, err)
	}
	return nil
}

// Backfill indexes every ledger product the index is missing. Per-product
// failures are collected rather than aborting the sweep, so one bad record
// cannot block the rest.
func (r *Reconciler) Backfill(ctx context.Context) error {
	ids, err := r.source.ListProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("list ledger product ids: %w", err)
	}
	indexed, err := r.repo.IndexedProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("list indexed product ids: %w", err)
	}

	var errs error
	var repaired int
	for _, id := range ids {
		if _, ok := indexed[id]; ok {
			continue
		}
		if err := r.indexProduct(ctx, id); err != nil {
			r.metrics.IncFailed(r.cfg.Consumer)
			errs = multierr.Append(errs, err)
			continue
		}
		r.metrics.IncProcessed(r.cfg.Consumer)
		repaired++
	}

	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"ledger_products": len(ids),
		"repaired":        repaired,
	}), "index backfill finished")
	return errs
}

func sleep(ctx context.Context, d time.Duration) error {
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
