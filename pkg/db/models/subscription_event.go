package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// SubscriptionEvent is the audit/dead-letter record for processed billing
// webhook deliveries. EventID is the provider's event id and doubles as the
// idempotency key. Rows are written once and never mutated.
type SubscriptionEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   string            `gorm:"column:event_id;not null;uniqueIndex"`
	Type      string            `gorm:"column:type;not null"`
	Data      json.RawMessage   `gorm:"column:data;type:jsonb"`
	Error     *string           `gorm:"column:error;type:text"`
	Status    enums.EventStatus `gorm:"column:status;type:event_status;not null;default:'normal'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime;index"`
}
