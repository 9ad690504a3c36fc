package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-service/internal/service"
)

type RoomHandler struct {
	presenceService *service.PresenceService
	logger          *zap.Logger
}

func NewRoomHandler(presenceService *service.PresenceService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		presenceService: presenceService,
		logger:          logger,
	}
}

// GetRoomUsers godoc
// @Summary      방 참여자 목록 조회
// @Description  현재 방에 접속 중인 사용자 목록을 조회합니다 (참여 순서)
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID (e.g. file:42)"
// @Success      200 {object} RoomUsersResponse
// @Failure      400 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /rooms/{roomId}/users [get]
func (h *RoomHandler) GetRoomUsers(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "BAD_REQUEST", "message": "Room ID required"},
		})
		return
	}

	roster := h.presenceService.Roster(roomID)

	c.JSON(http.StatusOK, RoomUsersResponse{
		Count: len(roster),
		Users: toRoomUsers(roster),
	})
}
