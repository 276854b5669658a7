package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrichain/agrichain-backend/internal/search"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
)

type stubSearchService struct {
	result *search.Result
	err    error
	term   string
}

func (s *stubSearchService) Search(ctx context.Context, term string) (*search.Result, error) {
	s.term = term
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestSearchReturnsVerifiedResult(t *testing.T) {
	svc := &stubSearchService{result: &search.Result{
		State:    search.StateFound,
		Verified: true,
		Source:   "ledger",
		Product:  &models.Product{ID: 4, Name: "Coffee"},
	}}
	handler := Search(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=BC-4", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.term != "BC-4" {
		t.Fatalf("expected term BC-4 got %q", svc.term)
	}

	var envelope struct {
		Data search.Result `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Verified || envelope.Data.Product == nil {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := Search(&stubSearchService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
