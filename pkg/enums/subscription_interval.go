package enums

import "fmt"

// SubscriptionInterval is the recurrence unit of a recurring tier.
type SubscriptionInterval string

const (
	SubscriptionIntervalDay   SubscriptionInterval = "day"
	SubscriptionIntervalMonth SubscriptionInterval = "month"
	SubscriptionIntervalYear  SubscriptionInterval = "year"
)

var validSubscriptionIntervals = []SubscriptionInterval{
	SubscriptionIntervalDay,
	SubscriptionIntervalMonth,
	SubscriptionIntervalYear,
}

func (i SubscriptionInterval) String() string {
	return string(i)
}

func (i SubscriptionInterval) IsValid() bool {
	for _, candidate := range validSubscriptionIntervals {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseSubscriptionInterval converts raw input into a SubscriptionInterval.
func ParseSubscriptionInterval(value string) (SubscriptionInterval, error) {
	for _, candidate := range validSubscriptionIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription interval %q", value)
}
