package enums

import "fmt"

// EventStatus classifies a processed billing webhook delivery in the audit
// trail. CRITICAL marks deliveries whose handler failed.
type EventStatus string

const (
	EventStatusNormal   EventStatus = "normal"
	EventStatusCritical EventStatus = "critical"
)

func (s EventStatus) String() string {
	return string(s)
}

func (s EventStatus) IsValid() bool {
	return s == EventStatusNormal || s == EventStatusCritical
}

// ParseEventStatus converts raw input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	switch EventStatus(value) {
	case EventStatusNormal:
		return EventStatusNormal, nil
	case EventStatusCritical:
		return EventStatusCritical, nil
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
