package repo

import (
	"time"

	"github.com/devsantiago69/Citaly-sub002/pkg/models"
	"gorm.io/gorm"
)

// WebhookLogRepository persists webhook delivery audit rows
type WebhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a new webhook log repository
func NewWebhookLogRepository(db *gorm.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Record stores the final outcome of one dispatch. Implements the
// dispatcher's Recorder interface.
func (r *WebhookLogRepository) Record(entry models.WebhookDeliveryLog) error {
	return r.db.Create(&entry).Error
}

// ListRecent returns the most recent delivery logs, newest first
func (r *WebhookLogRepository) ListRecent(limit int) ([]models.WebhookDeliveryLog, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	var entries []models.WebhookDeliveryLog
	err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// DeliveryStats summarizes dispatch outcomes since a point in time
type DeliveryStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// StatsSince aggregates delivery outcomes since the given time
func (r *WebhookLogRepository) StatsSince(since time.Time) (DeliveryStats, error) {
	var stats DeliveryStats
	base := r.db.Model(&models.WebhookDeliveryLog{}).Where("created_at >= ?", since)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := base.Session(&gorm.Session{}).Where("success = ?", true).Count(&stats.Succeeded).Error; err != nil {
		return stats, err
	}
	stats.Failed = stats.Total - stats.Succeeded
	return stats, nil
}
