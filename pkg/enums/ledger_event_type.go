package enums

import "fmt"

// LedgerEventType maps to the event_type column of ledger_events.
type LedgerEventType string

const (
	EventProductRegistered  LedgerEventType = "product_registered"
	EventProductTransferred LedgerEventType = "product_transferred"
)

var validLedgerEventTypes = []LedgerEventType{
	EventProductRegistered,
	EventProductTransferred,
}

// String implements fmt.Stringer.
func (e LedgerEventType) String() string {
	return string(e)
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
