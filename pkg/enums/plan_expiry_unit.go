package enums

import "fmt"

// PlanExpiryUnit is the unit of a subscription plan's expiry interval.
// Singular and plural spellings are both accepted so admin-entered values
// round-trip unchanged.
type PlanExpiryUnit string

const (
	PlanExpiryUnitDay    PlanExpiryUnit = "day"
	PlanExpiryUnitDays   PlanExpiryUnit = "days"
	PlanExpiryUnitMonth  PlanExpiryUnit = "month"
	PlanExpiryUnitMonths PlanExpiryUnit = "months"
	PlanExpiryUnitYear   PlanExpiryUnit = "year"
	PlanExpiryUnitYears  PlanExpiryUnit = "years"
)

var validPlanExpiryUnits = []PlanExpiryUnit{
	PlanExpiryUnitDay,
	PlanExpiryUnitDays,
	PlanExpiryUnitMonth,
	PlanExpiryUnitMonths,
	PlanExpiryUnitYear,
	PlanExpiryUnitYears,
}

func (u PlanExpiryUnit) String() string {
	return string(u)
}

func (u PlanExpiryUnit) IsValid() bool {
	for _, candidate := range validPlanExpiryUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// Normalized collapses plural spellings into the singular unit.
func (u PlanExpiryUnit) Normalized() PlanExpiryUnit {
	switch u {
	case PlanExpiryUnitDays:
		return PlanExpiryUnitDay
	case PlanExpiryUnitMonths:
		return PlanExpiryUnitMonth
	case PlanExpiryUnitYears:
		return PlanExpiryUnitYear
	}
	return u
}

// ParsePlanExpiryUnit converts raw input into a PlanExpiryUnit.
func ParsePlanExpiryUnit(value string) (PlanExpiryUnit, error) {
	for _, candidate := range validPlanExpiryUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan expiry unit %q", value)
}
