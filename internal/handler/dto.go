package handler

import (
	"collab-service/internal/domain"
)

// RoomUser is one roster entry as returned by the room hydration endpoint.
type RoomUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	Color    string `json:"color"`
}

// RoomUsersResponse is the page-load hydration payload: the roster a client
// renders before its WebSocket connection is established.
type RoomUsersResponse struct {
	Count int        `json:"count"`
	Users []RoomUser `json:"users"`
}

func toRoomUsers(roster []domain.UserPresence) []RoomUser {
	users := make([]RoomUser, 0, len(roster))
	for _, p := range roster {
		users = append(users, RoomUser{
			UserID:   p.UserID.String(),
			Username: p.Username,
			Email:    p.Email,
			Status:   string(p.Status),
			Color:    p.Color,
		})
	}
	return users
}

// UserStatusResponse is the durable last-seen view of a user.
type UserStatusResponse struct {
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}
