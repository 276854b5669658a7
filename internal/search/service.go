package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/internal/indexer"
	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/identifier"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// ResultState classifies a search outcome. Unverified is deliberately
// distinct from not found: the index knows the batch, but the ledger could
// not confirm it right now.
type ResultState string

const (
	StateFound      ResultState = "found"
	StateUnverified ResultState = "unverified"
	StateNotFound   ResultState = "not_found"
)

// Result is the facade's answer to one lookup.
type Result struct {
	State    ResultState         `json:"state"`
	Verified bool                `json:"verified"`
	Source   string              `json:"source,omitempty"`
	Product  *models.Product     `json:"product,omitempty"`
	Record   *models.IndexRecord `json:"record,omitempty"`
}

// Service resolves product ids, batch ids, and QR tokens into verified
// product views. The ledger is always preferred; the index only answers when
// the ledger cannot, and such answers are marked unverified.
type Service interface {
	Search(ctx context.Context, term string) (*Result, error)
}

type service struct {
	ledger ledger.Service
	index  indexer.Repository
	cfg    config.LedgerConfig
	logg   *logger.Logger
}

// NewService wires the search facade.
func NewService(ledgerSvc ledger.Service, index indexer.Repository, cfg config.LedgerConfig, logg *logger.Logger) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if index == nil {
		return nil, fmt.Errorf("index repository required")
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 5 * time.Second
	}
	return &service{ledger: ledgerSvc, index: index, cfg: cfg, logg: logg}, nil
}

func (s *service) Search(ctx context.Context, term string) (*Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term is required")
	}

	record := s.lookupIndex(ctx, term)

	productID, ok := identifier.ProductIDFromTerm(term)
	if !ok && record != nil {
		productID = record.ProductID
		ok = true
	}
	if !ok {
		return &Result{State: StateNotFound}, nil
	}

	product, degraded := s.fetchAuthoritative(ctx, productID)
	if product == nil {
		if degraded && record != nil {
			// The ledger is unreachable but the index has an answer.
			return &Result{State: StateUnverified, Source: "index", Record: record}, nil
		}
		return &Result{State: StateNotFound}, nil
	}

	verified := s.verify(ctx, product, record)
	if !verified {
		return &Result{
			State:    StateUnverified,
			Source:   "ledger",
			Product:  product,
			Record:   record,
			Verified: false,
		}, nil
	}
	return &Result{
		State:    StateFound,
		Source:   "ledger",
		Product:  product,
		Record:   record,
		Verified: true,
	}, nil
}

// lookupIndex consults the secondary index by batch id, QR token, or product
// id. Index failures degrade silently: the facade can still serve from the
// ledger.
func (s *service) lookupIndex(ctx context.Context, term string) *models.IndexRecord {
	var (
		record *models.IndexRecord
		err    error
	)
	switch {
	case strings.HasPrefix(term, identifier.BatchIDPrefix):
		record, err = s.index.FindByBatchID(ctx, term)
	case strings.HasPrefix(term, identifier.QRTokenPrefix):
		record, err = s.index.FindByQRToken(ctx, term)
	default:
		if id, ok := identifier.ProductIDFromTerm(term); ok {
			record, err = s.index.FindByProductID(ctx, id)
		} else {
			return nil
		}
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "index lookup failed")
		}
		return nil
	}
	return record
}

// fetchAuthoritative loads the product from the ledger under a bounded
// timeout. The second return reports degradation: the ledger did not answer,
// as opposed to answering "no such product".
func (s *service) fetchAuthoritative(ctx context.Context, productID uint64) (*models.Product, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()

	product, err := s.ledger.GetProduct(fetchCtx, productID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
			return nil, false
		}
		if s.logg != nil {
			logCtx := s.logg.WithProductID(ctx, productID)
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "ledger lookup degraded")
		}
		return nil, true
	}
	return product, false
}

// verify checks the product's integrity, and when an index record exists,
// that the index has not drifted from the ledger commitment. Verification
// failures or timeouts yield unverified, never an error.
func (s *service) verify(ctx context.Context, product *models.Product, record *models.IndexRecord) bool {
	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()

	candidate := product.ContentHash
	if record != nil {
		candidate = record.ContentHash
	}
	ok, err := s.ledger.IsAuthentic(verifyCtx, product.ID, candidate)
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithProductID(ctx, product.ID)
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "verification degraded")
		}
		return false
	}
	return ok
}
