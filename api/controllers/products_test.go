package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/types"
)

type stubLedgerService struct {
	product      *models.Product
	transactions []models.ProductTransaction
	ids          []uint64
	authentic    bool
	err          error

	gotRegister *ledger.RegisterProductInput
	gotTransfer *ledger.TransferProductInput
}

func (s *stubLedgerService) RegisterProduct(ctx context.Context, input ledger.RegisterProductInput) (*models.Product, error) {
	s.gotRegister = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func (s *stubLedgerService) TransferProduct(ctx context.Context, input ledger.TransferProductInput) (*models.Product, error) {
	s.gotTransfer = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func (s *stubLedgerService) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func (s *stubLedgerService) GetProductTransactions(ctx context.Context, id uint64) ([]models.ProductTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.transactions, nil
}

func (s *stubLedgerService) GetProductsByFarmer(ctx context.Context, farmerAddress string) ([]models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.product == nil {
		return nil, nil
	}
	return []models.Product{*s.product}, nil
}

func (s *stubLedgerService) ListProductIDs(ctx context.Context) ([]uint64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func (s *stubLedgerService) IsAuthentic(ctx context.Context, id uint64, candidateHash string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.authentic, nil
}

func withProductID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestRegisterProductCreated(t *testing.T) {
	svc := &stubLedgerService{product: &models.Product{
		ID:     1,
		Name:   "Coffee",
		Status: enums.StatusHarvested,
	}}
	handler := RegisterProduct(svc, nil)

	body := bytes.NewBufferString(`{
		"farmer_address": "0xfarm",
		"name": "Coffee",
		"variety": "Arabica",
		"quantity": 120,
		"farm_location": "Huila",
		"harvest_date": "2025-08-01",
		"quality_grade": "A"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotRegister == nil {
		t.Fatalf("service never called")
	}
	if svc.gotRegister.QualityGrade != enums.GradeA {
		t.Fatalf("unexpected grade %s", svc.gotRegister.QualityGrade)
	}
	want := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	if !svc.gotRegister.HarvestDate.Equal(want) {
		t.Fatalf("unexpected harvest date %s", svc.gotRegister.HarvestDate)
	}
}

func TestRegisterProductRejectsBadHarvestDate(t *testing.T) {
	handler := RegisterProduct(&stubLedgerService{}, nil)

	body := bytes.NewBufferString(`{
		"farmer_address": "0xfarm",
		"name": "Coffee",
		"variety": "Arabica",
		"quantity": 120,
		"farm_location": "Huila",
		"harvest_date": "01/08/2025",
		"quality_grade": "A"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestTransferProductSuccess(t *testing.T) {
	svc := &stubLedgerService{product: &models.Product{
		ID:     7,
		Status: enums.StatusAtDistributor,
	}}
	handler := TransferProduct(svc, nil)

	body := bytes.NewBufferString(`{
		"caller_address": "0xfarm",
		"to_address": "0xdist",
		"new_status": "at_distributor",
		"transaction_type": "transfer",
		"location": "Route 9 depot"
	}`)
	req := withProductID(httptest.NewRequest(http.MethodPost, "/api/v1/products/7/transfer", body), "7")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotTransfer == nil {
		t.Fatalf("service never called")
	}
	if svc.gotTransfer.ProductID != 7 {
		t.Fatalf("expected product id 7 got %d", svc.gotTransfer.ProductID)
	}
	if svc.gotTransfer.TransactionType != enums.TxTransfer {
		t.Fatalf("unexpected type %s", svc.gotTransfer.TransactionType)
	}
}

func TestTransferProductMapsInvalidTransition(t *testing.T) {
	svc := &stubLedgerService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot skip a stage")}
	handler := TransferProduct(svc, nil)

	body := bytes.NewBufferString(`{
		"caller_address": "0xfarm",
		"to_address": "0xretail",
		"new_status": "at_retailer",
		"transaction_type": "transfer",
		"location": "warehouse"
	}`)
	req := withProductID(httptest.NewRequest(http.MethodPost, "/api/v1/products/7/transfer", body), "7")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestGetProductRejectsNonNumericID(t *testing.T) {
	handler := GetProduct(&stubLedgerService{}, nil)

	req := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil), "abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetProductHistory(t *testing.T) {
	svc := &stubLedgerService{transactions: []models.ProductTransaction{
		{ProductID: 3, TransactionType: enums.TxHarvest, NewStatus: enums.StatusHarvested},
		{ProductID: 3, TransactionType: enums.TxTransfer, NewStatus: enums.StatusAtDistributor},
	}}
	handler := GetProductHistory(svc, nil)

	req := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/3/history", nil), "3")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data []models.ProductTransaction `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 transactions got %d", len(envelope.Data))
	}
	if envelope.Data[0].TransactionType != enums.TxHarvest {
		t.Fatalf("history must start at the genesis transaction, got %s", envelope.Data[0].TransactionType)
	}
}

func TestVerifyProduct(t *testing.T) {
	svc := &stubLedgerService{authentic: true}
	handler := VerifyProduct(svc, nil)

	hash := strings.Repeat("ab", 32)
	body := bytes.NewBufferString(`{"content_hash":"` + hash + `"}`)
	req := withProductID(httptest.NewRequest(http.MethodPost, "/api/v1/products/5/verify", body), "5")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			ProductID uint64 `json:"product_id"`
			Authentic bool   `json:"authentic"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Authentic || envelope.Data.ProductID != 5 {
		t.Fatalf("unexpected verdict %+v", envelope.Data)
	}
}

func TestVerifyProductRejectsMalformedHash(t *testing.T) {
	handler := VerifyProduct(&stubLedgerService{}, nil)

	body := bytes.NewBufferString(`{"content_hash":"not-a-digest"}`)
	req := withProductID(httptest.NewRequest(http.MethodPost, "/api/v1/products/5/verify", body), "5")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
