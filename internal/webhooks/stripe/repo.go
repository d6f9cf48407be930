package stripewebhook

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
)

// AuditRepository persists the subscription event trail. Every delivered
// event lands here exactly once, success or failure, and the event ID lookup
// doubles as the durable idempotency check.
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Create(ctx context.Context, event *models.SubscriptionEvent) error
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns a subscription event repository.
func NewAuditRepository(gdb *gorm.DB) AuditRepository {
	return &auditRepository{db: gdb}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	if tx == nil {
		return r
	}
	return &auditRepository{db: tx}
}

func (r *auditRepository) Create(ctx context.Context, event *models.SubscriptionEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

