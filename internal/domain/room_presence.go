package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoomPresenceRecord is the durable mirror of a presence transition. The
// in-memory roster stays authoritative; this table only backs last-seen
// lookups and offline analytics, written best-effort.
type RoomPresenceRecord struct {
	RoomID     string         `gorm:"primaryKey;size:255" json:"room_id"`
	UserID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Username   string         `gorm:"size:255" json:"username"`
	Email      string         `gorm:"size:255" json:"email"`
	Role       Role           `gorm:"type:varchar(20)" json:"role"`
	Color      string         `gorm:"size:20" json:"color"`
	Status     PresenceStatus `gorm:"type:varchar(20);default:'online';index" json:"status"`
	LastCursor datatypes.JSON `json:"last_cursor,omitempty"`
	LastSeen   time.Time      `gorm:"index" json:"last_seen"`
}

func (RoomPresenceRecord) TableName() string {
	return "room_presence"
}
