package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/internal/registry"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/eventlog"
	"github.com/agrichain/agrichain-backend/pkg/integrity"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// Service is the authoritative ledger state machine. Every mutation commits
// the product update, the custody transaction, and the ledger event in one
// database transaction, so consumers never observe a partial state change.
type Service interface {
	RegisterProduct(ctx context.Context, input RegisterProductInput) (*models.Product, error)
	TransferProduct(ctx context.Context, input TransferProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uint64) (*models.Product, error)
	GetProductTransactions(ctx context.Context, id uint64) ([]models.ProductTransaction, error)
	GetProductsByFarmer(ctx context.Context, farmerAddress string) ([]models.Product, error)
	ListProductIDs(ctx context.Context) ([]uint64, error)
	IsAuthentic(ctx context.Context, id uint64, candidateHash string) (bool, error)
}

type service struct {
	client   *db.Client
	repo     Repository
	registry registry.Service
	emitter  *eventlog.Emitter
	cfg      config.LedgerConfig
	logg     *logger.Logger
}

// RegisterProductInput carries the creation-time fields of a batch. All of
// them except quantity and grade are bound by the content hash.
type RegisterProductInput struct {
	FarmerAddress string             `json:"farmer_address"`
	Name          string             `json:"name"`
	Variety       string             `json:"variety"`
	Quantity      int                `json:"quantity"`
	FarmLocation  string             `json:"farm_location"`
	HarvestDate   time.Time          `json:"harvest_date"`
	QualityGrade  enums.QualityGrade `json:"quality_grade"`
}

// TransferProductInput describes one custody move.
type TransferProductInput struct {
	ProductID       uint64                `json:"product_id"`
	CallerAddress   string                `json:"caller_address"`
	ToAddress       string                `json:"to_address"`
	NewStatus       enums.ProductStatus   `json:"new_status"`
	TransactionType enums.TransactionType `json:"transaction_type"`
	Location        string                `json:"location"`
	AdditionalData  string                `json:"additional_data"`
}

// NewService wires the ledger state machine with its dependencies.
func NewService(client *db.Client, repo Repository, reg registry.Service, emitter *eventlog.Emitter, cfg config.LedgerConfig, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry service required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		client:   client,
		repo:     repo,
		registry: reg,
		emitter:  emitter,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

func (s *service) RegisterProduct(ctx context.Context, input RegisterProductInput) (*models.Product, error) {
	if err := s.validateRegistration(input); err != nil {
		return nil, err
	}

	farmer, err := s.registry.RequireRole(ctx, input.FarmerAddress, enums.RoleFarmer)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Variety:       strings.TrimSpace(input.Variety),
		Quantity:      input.Quantity,
		FarmLocation:  strings.TrimSpace(input.FarmLocation),
		HarvestDate:   input.HarvestDate,
		QualityGrade:  input.QualityGrade,
		FarmerAddress: farmer.Address,
		Status:        enums.StatusHarvested,
	}
	product.ContentHash = integrity.ComputeHash(integrity.Input{
		Name:          product.Name,
		Variety:       product.Variety,
		FarmerAddress: product.FarmerAddress,
		HarvestDate:   product.HarvestDate,
		FarmLocation:  product.FarmLocation,
	})

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		genesis := &models.ProductTransaction{
			ProductID:       product.ID,
			FromAddress:     "",
			ToAddress:       farmer.Address,
			TransactionType: enums.TxHarvest,
			NewStatus:       enums.StatusHarvested,
			Location:        product.FarmLocation,
			OccurredAt:      now,
		}
		if err := txRepo.AppendTransaction(ctx, genesis); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append genesis transaction")
		}
		return s.emitter.Emit(ctx, tx, eventlog.Event{
			Type:      enums.EventProductRegistered,
			ProductID: product.ID,
			Data: eventlog.ProductRegisteredPayload{
				ProductID:     product.ID,
				FarmerAddress: farmer.Address,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register product")
	}

	if s.logg != nil {
		logCtx := s.logg.WithProductID(ctx, product.ID)
		logCtx = s.logg.WithStakeholder(logCtx, farmer.Address)
		s.logg.Info(logCtx, "product registered")
	}
	return product, nil
}

func (s *service) TransferProduct(ctx context.Context, input TransferProductInput) (*models.Product, error) {
	if err := s.validateTransfer(input); err != nil {
		return nil, err
	}

	// Both ends of the move must be registered stakeholders.
	if _, err := s.registry.Get(ctx, input.CallerAddress); err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(ctx, input.ToAddress); err != nil {
		return nil, err
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestTransaction(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load custody history")
	}
	if latest.ToAddress != input.CallerAddress {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized,
			fmt.Sprintf("address %s is not the current custodian of product %d", input.CallerAddress, product.ID))
	}

	if err := checkTransition(product.Status, input.NewStatus, input.TransactionType); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		// The compare-and-set pins the status this transfer was validated
		// against. A concurrent transfer that won the race leaves zero rows.
		moved, err := txRepo.AdvanceProductStatus(ctx, product.ID, product.Status, input.NewStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("product %d status changed concurrently", product.ID))
		}
		txn := &models.ProductTransaction{
			ProductID:       product.ID,
			FromAddress:     input.CallerAddress,
			ToAddress:       input.ToAddress,
			TransactionType: input.TransactionType,
			NewStatus:       input.NewStatus,
			Location:        strings.TrimSpace(input.Location),
			OccurredAt:      now,
			AdditionalData:  input.AdditionalData,
		}
		if err := txRepo.AppendTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append transaction")
		}
		return s.emitter.Emit(ctx, tx, eventlog.Event{
			Type:      enums.EventProductTransferred,
			ProductID: product.ID,
			Data: eventlog.ProductTransferredPayload{
				ProductID:   product.ID,
				FromAddress: input.CallerAddress,
				ToAddress:   input.ToAddress,
				NewStatus:   input.NewStatus,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transfer product")
	}

	product.Status = input.NewStatus
	if s.logg != nil {
		logCtx := s.logg.WithProductID(ctx, product.ID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from":       input.CallerAddress,
			"to":         input.ToAddress,
			"new_status": input.NewStatus,
		})
		s.logg.Info(logCtx, "product transferred")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	return s.loadProduct(ctx, id)
}

func (s *service) GetProductTransactions(ctx context.Context, id uint64) ([]models.ProductTransaction, error) {
	if _, err := s.loadProduct(ctx, id); err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactions(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

func (s *service) GetProductsByFarmer(ctx context.Context, farmerAddress string) ([]models.Product, error) {
	if strings.TrimSpace(farmerAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer address is required")
	}
	products, err := s.repo.ListProductsByFarmer(ctx, farmerAddress)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer products")
	}
	return products, nil
}

func (s *service) ListProductIDs(ctx context.Context) ([]uint64, error) {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product ids")
	}
	return ids, nil
}

// IsAuthentic recomputes the product's content hash from its ledger fields
// and compares the candidate byte for byte. Both a tampered candidate and a
// corrupted stored record come back false. This is stricter than comparing
// against the stored contentHash column: a corrupted stored hash fails even
// a self-match, while on intact records the two checks are equivalent.
func (s *service) IsAuthentic(ctx context.Context, id uint64, candidateHash string) (bool, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return false, err
	}
	in := integrity.Input{
		Name:          product.Name,
		Variety:       product.Variety,
		FarmerAddress: product.FarmerAddress,
		HarvestDate:   product.HarvestDate,
		FarmLocation:  product.FarmLocation,
	}
	if !integrity.Verify(in, product.ContentHash) {
		return false, nil
	}
	return integrity.Verify(in, candidateHash), nil
}

func (s *service) loadProduct(ctx context.Context, id uint64) (*models.Product, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product id 0 does not exist")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, fmt.Sprintf("product %d not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) validateRegistration(input RegisterProductInput) error {
	if strings.TrimSpace(input.FarmerAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "farmer address is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.Variety) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product variety is required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if strings.TrimSpace(input.FarmLocation) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "farm location is required")
	}
	if input.HarvestDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "harvest date is required")
	}
	if input.HarvestDate.After(time.Now().Add(s.cfg.HarvestDateSkew)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "harvest date is in the future")
	}
	if !input.QualityGrade.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quality grade %q", input.QualityGrade))
	}
	return nil
}

func (s *service) validateTransfer(input TransferProductInput) error {
	if strings.TrimSpace(input.CallerAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "caller address is required")
	}
	if strings.TrimSpace(input.ToAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target address is required")
	}
	if !input.TransactionType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.TransactionType))
	}
	if input.TransactionType == enums.TxHarvest {
		return pkgerrors.New(pkgerrors.CodeValidation, "harvest transactions are created only at registration")
	}
	if !input.NewStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", input.NewStatus))
	}
	return nil
}

// checkTransition enforces the status machine: the canonical path advances
// one stage at a time, sold is terminal, and only transport and quality_check
// may additionally repeat the current status.
func checkTransition(current, target enums.ProductStatus, txType enums.TransactionType) error {
	if current.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("product is %s; no further transfers are possible", current))
	}
	if txType.AllowsSideways() && target == current {
		return nil
	}
	if !current.CanAdvanceTo(target) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s", current, target)).
			WithDetails(map[string]any{"current": current, "target": target})
	}
	return nil
}
