package identifier

import (
	"testing"
	"time"
)

func TestBatchIDRoundTrip(t *testing.T) {
	if got := BatchID(1); got != "BC-1" {
		t.Fatalf("expected BC-1, got %s", got)
	}
	id, err := ParseBatchID("BC-42")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d %v", id, err)
	}
}

func TestParseBatchIDRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "42", "BC-", "BC-0", "BC-abc", "bc-1", "QR-1"} {
		if _, err := ParseBatchID(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestQRTokenRoundTrip(t *testing.T) {
	minted := time.UnixMilli(1717200000000)
	token := QRToken(7, minted)
	if token != "AgriChain-7-1717200000000" {
		t.Fatalf("unexpected token %s", token)
	}
	id, err := ParseQRToken(token)
	if err != nil || id != 7 {
		t.Fatalf("expected 7, got %d %v", id, err)
	}
}

func TestQRTokenUniquePerMint(t *testing.T) {
	first := QRToken(7, time.UnixMilli(1))
	second := QRToken(7, time.UnixMilli(2))
	if first == second {
		t.Fatal("tokens minted at different times must differ")
	}
}

func TestProductIDFromTerm(t *testing.T) {
	tests := []struct {
		term string
		id   uint64
		ok   bool
	}{
		{"123", 123, true},
		{" 123 ", 123, true},
		{"BC-123", 123, true},
		{"AgriChain-9-1717200000000", 9, true},
		{"0", 0, false},
		{"BC-0", 0, false},
		{"tomatoes", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := ProductIDFromTerm(tt.term)
		if ok != tt.ok || id != tt.id {
			t.Fatalf("term %q: expected (%d,%v), got (%d,%v)", tt.term, tt.id, tt.ok, id, ok)
		}
	}
}
