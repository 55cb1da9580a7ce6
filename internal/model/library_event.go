package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event topics
const (
	TopicBorrows = "borrows"
	TopicFees    = "fees"
	TopicBooks   = "books"
)

// LibraryEvent is an append-only record of a state change, used for audit and incremental sync
type LibraryEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string         `gorm:"type:varchar(32);not null;index:idx_topic_id,priority:1" json:"topic"`
	EventType string         `gorm:"type:varchar(64);not null" json:"eventType"`
	EntityID  int            `gorm:"not null" json:"entityId"`
	ActorID   int            `json:"actorId"`
	UserID    int            `gorm:"index" json:"userId"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TableName specifies the table name for LibraryEvent model
func (LibraryEvent) TableName() string {
	return "library_events"
}
