package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

// writeOutbox implements the transactional outbox: the event row is written inside
// the caller's DB transaction and published by workflow.OutboxDispatcher after commit.
func writeOutbox(tx *gorm.DB, businessId string, eventType EventType, refType string, refId int, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := OutboxMessage{
		BusinessId:    businessId,
		EventType:     string(eventType),
		ReferenceType: refType,
		ReferenceId:   refId,
		OccurredAt:    time.Now().UTC(),
		Payload:       data,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(tx.Statement.Context),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func businessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", utils.NewValidationError("business id is required")
	}
	return businessId, nil
}
