package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/service"
)

type PresenceHandler struct {
	presenceService *service.PresenceService
	logger          *zap.Logger
}

func NewPresenceHandler(presenceService *service.PresenceService, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{
		presenceService: presenceService,
		logger:          logger,
	}
}

// GetUserStatus godoc
// @Summary      사용자 접속 상태 조회
// @Description  사용자의 최근 presence 기록을 조회합니다 (last seen)
// @Tags         presence
// @Produce      json
// @Param        userId path string true "User ID"
// @Success      200 {object} UserStatusResponse
// @Failure      400 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /presence/status/{userId} [get]
func (h *PresenceHandler) GetUserStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "BAD_REQUEST", "message": "Invalid user ID"},
		})
		return
	}

	record, err := h.presenceService.UserStatus(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "NOT_FOUND", "message": "User presence not found"},
		})
		return
	}

	c.JSON(http.StatusOK, UserStatusResponse{
		UserID:   record.UserID.String(),
		RoomID:   record.RoomID,
		Username: record.Username,
		Status:   string(record.Status),
		LastSeen: record.LastSeen.Format(time.RFC3339),
	})
}
