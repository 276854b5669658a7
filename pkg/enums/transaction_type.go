package enums

import "fmt"

// TransactionType classifies a custody event.
type TransactionType string

const (
	TxHarvest      TransactionType = "harvest"
	TxTransfer     TransactionType = "transfer"
	TxTransport    TransactionType = "transport"
	TxQualityCheck TransactionType = "quality_check"
	TxSale         TransactionType = "sale"
)

var validTransactionTypes = []TransactionType{
	TxHarvest,
	TxTransfer,
	TxTransport,
	TxQualityCheck,
	TxSale,
}

// Sideways types may re-assert the product's current status without
// advancing it. Every other type must advance exactly one stage.
var sidewaysTransactionTypes = map[TransactionType]bool{
	TxTransport:    true,
	TxQualityCheck: true,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// AllowsSideways reports whether the type is allow-listed to keep the
// product at its current status.
func (t TransactionType) AllowsSideways() bool {
	return sidewaysTransactionTypes[t]
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
