package enums

import "fmt"

// StakeholderRole is the single supply-chain role a stakeholder registers with.
type StakeholderRole string

const (
	RoleFarmer      StakeholderRole = "farmer"
	RoleDistributor StakeholderRole = "distributor"
	RoleRetailer    StakeholderRole = "retailer"
	RoleConsumer    StakeholderRole = "consumer"
)

var validStakeholderRoles = []StakeholderRole{
	RoleFarmer,
	RoleDistributor,
	RoleRetailer,
	RoleConsumer,
}

// String implements fmt.Stringer.
func (r StakeholderRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StakeholderRole.
func (r StakeholderRole) IsValid() bool {
	for _, candidate := range validStakeholderRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStakeholderRole converts raw input into a StakeholderRole.
func ParseStakeholderRole(value string) (StakeholderRole, error) {
	for _, candidate := range validStakeholderRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stakeholder role %q", value)
}
