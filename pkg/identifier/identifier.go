// Package identifier owns the stable string formats external systems parse:
// batch ids ("BC-<productId>") and QR tokens
// ("AgriChain-<productId>-<unix ms>").
package identifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// BatchIDPrefix starts every batch identifier.
	BatchIDPrefix = "BC-"
	// QRTokenPrefix starts every QR token.
	QRTokenPrefix = "AgriChain-"
)

// BatchID derives the deterministic batch identifier for a product.
func BatchID(productID uint64) string {
	return BatchIDPrefix + strconv.FormatUint(productID, 10)
}

// ParseBatchID extracts the product id from a batch identifier.
func ParseBatchID(value string) (uint64, error) {
	raw, ok := strings.CutPrefix(value, BatchIDPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid batch id %q", value)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid batch id %q", value)
	}
	return id, nil
}

// QRToken mints the token embedded in a product's QR code. The timestamp
// suffix makes tokens unique per registration even across index rebuilds.
func QRToken(productID uint64, mintedAt time.Time) string {
	return fmt.Sprintf("%s%d-%d", QRTokenPrefix, productID, mintedAt.UnixMilli())
}

// ParseQRToken extracts the product id from a QR token.
func ParseQRToken(value string) (uint64, error) {
	raw, ok := strings.CutPrefix(value, QRTokenPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid qr token %q", value)
	}
	idPart, _, found := strings.Cut(raw, "-")
	if !found {
		return 0, fmt.Errorf("invalid qr token %q", value)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid qr token %q", value)
	}
	return id, nil
}

// ProductIDFromTerm resolves a free-form search term to a product id. Plain
// integers and batch ids resolve directly; QR tokens resolve via their
// embedded id. Non-numeric terms return false.
func ProductIDFromTerm(term string) (uint64, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return 0, false
	}
	if id, err := strconv.ParseUint(term, 10, 64); err == nil && id > 0 {
		return id, true
	}
	if id, err := ParseBatchID(term); err == nil {
		return id, true
	}
	if id, err := ParseQRToken(term); err == nil {
		return id, true
	}
	return 0, false
}
