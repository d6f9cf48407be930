package enums

import "fmt"

// TierType marks recurring tiers as the primary plan or an add-on. It carries
// no meaning for one-time tiers.
type TierType string

const (
	TierTypePrimary TierType = "primary"
	TierTypeAddOn   TierType = "add_on"
)

func (t TierType) String() string {
	return string(t)
}

func (t TierType) IsValid() bool {
	return t == TierTypePrimary || t == TierTypeAddOn
}

// ParseTierType converts raw input into a TierType.
func ParseTierType(value string) (TierType, error) {
	switch TierType(value) {
	case TierTypePrimary:
		return TierTypePrimary, nil
	case TierTypeAddOn:
		return TierTypeAddOn, nil
	}
	return "", fmt.Errorf("invalid tier type %q", value)
}
