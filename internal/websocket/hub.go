package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
	"collab-service/internal/middleware"
	"collab-service/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans realtime events out to room members. Presence state lives in the
// presence service; the hub owns the connection-to-room bookkeeping and the
// Redis bridge that relays broadcasts across replicas.
type Hub struct {
	presence  *service.PresenceService
	validator middleware.TokenValidator
	redis     *redis.Client
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// instanceID marks this replica's messages on the Redis bridge so they
	// are not delivered twice locally.
	instanceID string

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	// owners tracks which connection currently speaks for a user in a room.
	// A page refresh opens a new connection before the old one is reaped;
	// only the owning connection's departure transitions presence.
	owners map[string]map[uuid.UUID]*Client
	subs   map[string]*redis.PubSub
}

func NewHub(
	presence *service.PresenceService,
	validator middleware.TokenValidator,
	redisClient *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		presence:   presence,
		validator:  validator,
		redis:      redisClient,
		metrics:    m,
		logger:     logger,
		instanceID: uuid.NewString(),
		rooms:      make(map[string]map[*Client]bool),
		owners:     make(map[string]map[uuid.UUID]*Client),
		subs:       make(map[string]*redis.PubSub),
	}
}

// HandleWebSocket godoc
// @Summary      Collaboration WebSocket 연결
// @Description  실시간 협업 WebSocket에 연결합니다 (join_room / cursor_move / activity)
// @Tags         websocket
// @Param        token query string true "JWT Access Token"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} map[string]interface{}
// @Router       /ws/collab [get]
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "UNAUTHORIZED", "message": "Token required"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	identity, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		h.logger.Warn("invalid token for WebSocket", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "UNAUTHORIZED", "message": "Invalid token"},
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(h, conn, identity.UserID, identity.Email)
	h.metrics.ConnectionsActive.Inc()
	h.logger.Info("WebSocket connected", zap.String("userId", identity.UserID.String()))

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleEvent(c *Client, msg *Message) {
	h.metrics.EventsTotal.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case EventJoinRoom:
		h.joinRoom(c, msg)
	case EventLeaveRoom:
		h.leaveRoom(c, msg.Room)
	case EventCursorMove:
		h.cursorMove(c, msg)
	case EventCommentAdded, EventActivity:
		h.relayActivity(c, msg)
	default:
		h.logger.Warn("unknown event type",
			zap.String("type", msg.Type),
			zap.String("userId", c.userID.String()))
	}
}

func (h *Hub) joinRoom(c *Client, msg *Message) {
	email := msg.Email
	if email == "" {
		email = c.email
	}

	entry, roster, err := h.presence.Join(context.Background(), msg.Room, service.JoinInput{
		UserID:   c.userID,
		Username: msg.Username,
		Email:    email,
		Role:     domain.Role(msg.Role),
	})
	if err != nil {
		c.sendMessage(&Message{
			Type:    EventJoinAck,
			Room:    msg.Room,
			Success: boolPtr(false),
			Error:   err.Error(),
		})
		return
	}

	h.mu.Lock()
	if h.rooms[msg.Room] == nil {
		h.rooms[msg.Room] = make(map[*Client]bool)
	}
	if h.owners[msg.Room] == nil {
		h.owners[msg.Room] = make(map[uuid.UUID]*Client)
	}
	h.rooms[msg.Room][c] = true
	h.owners[msg.Room][c.userID] = c
	h.mu.Unlock()
	c.rooms[msg.Room] = true

	h.ensureSubscribed(msg.Room)

	// Direct reply to the joiner: assigned color plus the current roster.
	c.sendMessage(&Message{
		Type:    EventJoinAck,
		Room:    msg.Room,
		Success: boolPtr(true),
		Color:   entry.Color,
		Members: toMembers(roster),
	})

	h.broadcastToRoom(msg.Room, &Message{
		Type:     EventUserJoined,
		Room:     msg.Room,
		UserID:   entry.UserID.String(),
		Username: entry.Username,
		Color:    entry.Color,
		Role:     string(entry.Role),
	}, c)

	h.updateGauges()
	h.logger.Info("user joined room",
		zap.String("roomId", msg.Room),
		zap.String("userId", entry.UserID.String()),
		zap.String("color", entry.Color))
}

// leaveRoom handles both the explicit leave_room event and transport
// disconnect. Safe to call more than once per (client, room).
func (h *Hub) leaveRoom(c *Client, room string) {
	if room == "" || !c.rooms[room] {
		return
	}
	delete(c.rooms, room)

	h.mu.Lock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	isOwner := false
	if owners, ok := h.owners[room]; ok {
		if owners[c.userID] == c {
			delete(owners, c.userID)
			if len(owners) == 0 {
				delete(h.owners, room)
			}
			isOwner = true
		}
	}
	h.mu.Unlock()

	if !isOwner {
		// A newer connection for the same user took this room over (page
		// refresh); presence already belongs to it.
		h.maybeUnsubscribe(room)
		return
	}

	entry, ok := h.presence.Leave(context.Background(), room, c.userID)
	if ok {
		h.broadcastToRoom(room, &Message{
			Type:     EventUserLeft,
			Room:     room,
			UserID:   entry.UserID.String(),
			Username: entry.Username,
		}, c)
		h.broadcastToRoom(room, &Message{
			Type:   EventCursorRemoved,
			Room:   room,
			UserID: entry.UserID.String(),
		}, c)

		h.logger.Info("user left room",
			zap.String("roomId", room),
			zap.String("userId", entry.UserID.String()))
	}

	h.maybeUnsubscribe(room)
	h.updateGauges()
}

// disconnect runs the leave transition for every room this connection had
// joined. The underlying transport may report a close more than once; the
// per-room bookkeeping makes the second signal a silent no-op.
func (h *Hub) disconnect(c *Client) {
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		h.leaveRoom(c, room)
	}

	h.metrics.ConnectionsActive.Dec()
	h.logger.Info("WebSocket disconnected", zap.String("userId", c.userID.String()))
}

func (h *Hub) cursorMove(c *Client, msg *Message) {
	if msg.Room == "" || !c.rooms[msg.Room] || msg.X == nil || msg.Y == nil {
		return
	}

	entry, ok := h.presence.UpdateCursor(msg.Room, c.userID, *msg.X, *msg.Y)
	if !ok {
		return
	}

	h.broadcastToRoom(msg.Room, &Message{
		Type:   EventCursorMove,
		Room:   msg.Room,
		UserID: entry.UserID.String(),
		X:      msg.X,
		Y:      msg.Y,
		Color:  entry.Color,
	}, c)
}

func (h *Hub) relayActivity(c *Client, msg *Message) {
	if msg.Room == "" || !c.rooms[msg.Room] {
		return
	}

	entry, ok := h.presence.Touch(msg.Room, c.userID)
	if !ok {
		return
	}

	action := msg.Action
	if action == "" && msg.Type == EventCommentAdded {
		action = "added comment"
	}

	h.broadcastToRoom(msg.Room, &Message{
		Type:      EventActivity,
		Room:      msg.Room,
		UserID:    entry.UserID.String(),
		Username:  entry.Username,
		Action:    action,
		Target:    msg.Target,
		Timestamp: timePtr(time.Now()),
	}, c)
}

// broadcastToRoom delivers to every local room member except exclude, then
// publishes to the Redis bridge for the other replicas.
func (h *Hub) broadcastToRoom(room string, msg *Message, exclude *Client) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.Error(err))
		return
	}

	h.deliverLocal(room, payload, exclude)
	h.publishBridge(room, payload)
}

func (h *Hub) deliverLocal(room string, payload []byte, exclude *Client) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != exclude {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			h.metrics.BroadcastsDropped.Inc()
		}
	}
}

func (h *Hub) updateGauges() {
	rooms, online := h.presence.Stats()
	h.metrics.RoomsActive.Set(float64(rooms))
	h.metrics.MembersOnline.Set(float64(online))
}
