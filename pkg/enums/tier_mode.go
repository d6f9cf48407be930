package enums

import "fmt"

// TierMode distinguishes recurring billing from one-time purchases.
type TierMode string

const (
	TierModeRecurring TierMode = "recurring"
	TierModeOneTime   TierMode = "one_time"
)

func (m TierMode) String() string {
	return string(m)
}

func (m TierMode) IsValid() bool {
	return m == TierModeRecurring || m == TierModeOneTime
}

// ParseTierMode converts raw input into a TierMode.
func ParseTierMode(value string) (TierMode, error) {
	switch TierMode(value) {
	case TierModeRecurring:
		return TierModeRecurring, nil
	case TierModeOneTime:
		return TierModeOneTime, nil
	}
	return "", fmt.Errorf("invalid tier mode %q", value)
}
