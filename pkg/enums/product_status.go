package enums

import "fmt"

// ProductStatus is a product's custody stage. Stages only move forward:
// harvested -> at_distributor -> at_retailer -> sold, with sold terminal.
type ProductStatus string

const (
	StatusHarvested     ProductStatus = "harvested"
	StatusAtDistributor ProductStatus = "at_distributor"
	StatusAtRetailer    ProductStatus = "at_retailer"
	StatusSold          ProductStatus = "sold"
)

var validProductStatuses = []ProductStatus{
	StatusHarvested,
	StatusAtDistributor,
	StatusAtRetailer,
	StatusSold,
}

var statusStage = map[ProductStatus]int{
	StatusHarvested:     0,
	StatusAtDistributor: 1,
	StatusAtRetailer:    2,
	StatusSold:          3,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Stage returns the ordinal position of the status on the canonical path.
func (s ProductStatus) Stage() int {
	if stage, ok := statusStage[s]; ok {
		return stage
	}
	return -1
}

// IsTerminal reports whether no further transitions may leave the status.
func (s ProductStatus) IsTerminal() bool {
	return s == StatusSold
}

// CanAdvanceTo reports whether target is the immediate next stage on the
// canonical path. Sideways repeats are handled per transaction type, not here.
func (s ProductStatus) CanAdvanceTo(target ProductStatus) bool {
	from, ok := statusStage[s]
	if !ok {
		return false
	}
	to, ok := statusStage[target]
	if !ok {
		return false
	}
	return to == from+1
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
