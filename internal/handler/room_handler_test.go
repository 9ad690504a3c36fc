package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/repository"
	"collab-service/internal/service"
)

func newTestPresenceService() *service.PresenceService {
	return service.NewPresenceService(repository.NewPresenceRepository(nil), zap.NewNop(), 10*time.Second)
}

func joinUser(t *testing.T, svc *service.PresenceService, room, username string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, _, err := svc.Join(context.Background(), room, service.JoinInput{
		UserID:   userID,
		Username: username,
		Email:    username + "@wealist.co.kr",
		Role:     domain.RoleEditor,
	})
	require.NoError(t, err)
	return userID
}

func TestRoomHandler_GetRoomUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestPresenceService()
	h := NewRoomHandler(svc, zap.NewNop())

	joinUser(t, svc, "file:42", "alice")
	joinUser(t, svc, "file:42", "bob")
	joinUser(t, svc, "file:7", "carol")

	router := gin.New()
	router.GET("/rooms/:roomId/users", h.GetRoomUsers)

	req := httptest.NewRequest(http.MethodGet, "/rooms/file:42/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomUsersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	// Join order preserved.
	assert.Equal(t, "alice", resp.Users[0].Username)
	assert.Equal(t, "bob", resp.Users[1].Username)
	assert.Equal(t, "online", resp.Users[0].Status)
	assert.NotEmpty(t, resp.Users[0].Color)
	assert.NotEqual(t, resp.Users[0].Color, resp.Users[1].Color)
}

func TestRoomHandler_GetRoomUsersEmptyRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRoomHandler(newTestPresenceService(), zap.NewNop())

	router := gin.New()
	router.GET("/rooms/:roomId/users", h.GetRoomUsers)

	req := httptest.NewRequest(http.MethodGet, "/rooms/file:999/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomUsersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Users)
}
