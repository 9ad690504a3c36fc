package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// CursorPosition is the last reported cursor location within a room.
// Absent (nil) until the user sends a first cursor_move.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UserPresence is one user's live session inside a room. Owned and mutated
// exclusively by the presence service; everything handed out of the service
// is a copy.
type UserPresence struct {
	UserID   uuid.UUID       `json:"user_id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     Role            `json:"role"`
	Color    string          `json:"color"`
	Status   PresenceStatus  `json:"status"`
	Cursor   *CursorPosition `json:"cursor_position,omitempty"`
	JoinedAt time.Time       `json:"joined_at"`
	LastSeen time.Time       `json:"last_seen"`
}
