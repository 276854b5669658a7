package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrichain/agrichain-backend/api/responses"
	"github.com/agrichain/agrichain-backend/api/validators"
	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/integrity"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// RegisterProduct creates a harvest batch on the ledger.
func RegisterProduct(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload registerProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RegisterProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// TransferProduct moves custody of a batch one step along the chain.
func TransferProduct(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.TransferProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProduct fetches the authoritative batch record.
func GetProduct(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProductHistory returns the custody trail oldest first.
func GetProductHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.GetProductTransactions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactions)
	}
}

// ListProductIDs enumerates every batch id known to the ledger.
func ListProductIDs(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ids, err := svc.ListProductIDs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"product_ids": ids})
	}
}

// FarmerProducts lists the batches a farmer registered.
func FarmerProducts(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		address := strings.TrimSpace(chi.URLParam(r, "address"))
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address is required"))
			return
		}

		products, err := svc.GetProductsByFarmer(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products)
	}
}

// VerifyProduct checks a candidate digest against the recomputed ledger hash.
func VerifyProduct(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		authentic, err := svc.IsAuthentic(r.Context(), id, strings.ToLower(strings.TrimSpace(payload.ContentHash)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id": id,
			"authentic":  authentic,
		})
	}
}

func parseProductID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive integer").
			WithDetails(map[string]string{"id": raw})
	}
	return id, nil
}

type registerProductRequest struct {
	FarmerAddress string `json:"farmer_address" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Variety       string `json:"variety" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
	FarmLocation  string `json:"farm_location" validate:"required"`
	HarvestDate   string `json:"harvest_date" validate:"required"`
	QualityGrade  string `json:"quality_grade" validate:"required"`
}

func (r registerProductRequest) toInput() (ledger.RegisterProductInput, error) {
	harvestDate, err := time.ParseInLocation(integrity.HarvestDateLayout, strings.TrimSpace(r.HarvestDate), time.UTC)
	if err != nil {
		return ledger.RegisterProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "harvest_date must be formatted YYYY-MM-DD")
	}

	grade, err := enums.ParseQualityGrade(strings.TrimSpace(r.QualityGrade))
	if err != nil {
		return ledger.RegisterProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quality grade")
	}

	return ledger.RegisterProductInput{
		FarmerAddress: r.FarmerAddress,
		Name:          r.Name,
		Variety:       r.Variety,
		Quantity:      r.Quantity,
		FarmLocation:  r.FarmLocation,
		HarvestDate:   harvestDate,
		QualityGrade:  grade,
	}, nil
}

type transferProductRequest struct {
	CallerAddress   string `json:"caller_address" validate:"required"`
	ToAddress       string `json:"to_address" validate:"required"`
	NewStatus       string `json:"new_status" validate:"required"`
	TransactionType string `json:"transaction_type" validate:"required"`
	Location        string `json:"location" validate:"required"`
	AdditionalData  string `json:"additional_data" validate:"omitempty,max=2048"`
}

func (r transferProductRequest) toInput(productID uint64) (ledger.TransferProductInput, error) {
	status, err := enums.ParseProductStatus(strings.TrimSpace(r.NewStatus))
	if err != nil {
		return ledger.TransferProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	txType, err := enums.ParseTransactionType(strings.TrimSpace(r.TransactionType))
	if err != nil {
		return ledger.TransferProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type")
	}

	return ledger.TransferProductInput{
		ProductID:       productID,
		CallerAddress:   r.CallerAddress,
		ToAddress:       r.ToAddress,
		NewStatus:       status,
		TransactionType: txType,
		Location:        r.Location,
		AdditionalData:  r.AdditionalData,
	}, nil
}

type verifyProductRequest struct {
	ContentHash string `json:"content_hash" validate:"required,len=64,hexadecimal"`
}
