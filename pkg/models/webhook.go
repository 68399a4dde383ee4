package models

// WebhookDeliveryLog records the final outcome of one webhook dispatch.
// It is a write-only audit trail: rows are never read back for redelivery.
type WebhookDeliveryLog struct {
	BaseModel
	Event        string `gorm:"not null;index" json:"event"`
	TargetURL    string `gorm:"not null" json:"target_url"`
	Success      bool   `gorm:"not null" json:"success"`
	StatusCode   int    `json:"status_code,omitempty"`
	Attempts     int    `gorm:"not null" json:"attempts"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}
