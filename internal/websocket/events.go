package websocket

import (
	"time"

	"collab-service/internal/domain"
)

// Event types on the realtime wire. Inbound events name the client intent,
// outbound events name what happened.
const (
	// Client -> server
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventCursorMove   = "cursor_move"
	EventCommentAdded = "comment_added"
	EventActivity     = "activity"

	// Server -> client
	EventJoinAck       = "join_ack"
	EventUserJoined    = "user_joined"
	EventUserLeft      = "user_left"
	EventCursorRemoved = "cursor_removed"
	EventError         = "error"
)

// Message is the flat JSON envelope for every realtime event. Fields are
// populated per event type; everything else stays omitted.
type Message struct {
	Type     string   `json:"type"`
	Room     string   `json:"room,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     string   `json:"role,omitempty"`
	Color    string   `json:"color,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Action   string   `json:"action,omitempty"`
	Target   string   `json:"target,omitempty"`

	// join_ack
	Success *bool    `json:"success,omitempty"`
	Members []Member `json:"members,omitempty"`

	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Member is one roster entry in a join_ack.
type Member struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Color    string `json:"color"`
	Status   string `json:"status"`
}

func toMembers(roster []domain.UserPresence) []Member {
	members := make([]Member, 0, len(roster))
	for _, p := range roster {
		members = append(members, Member{
			UserID:   p.UserID.String(),
			Username: p.Username,
			Email:    p.Email,
			Role:     string(p.Role),
			Color:    p.Color,
			Status:   string(p.Status),
		})
	}
	return members
}

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }
func timePtr(t time.Time) *time.Time { return &t }
