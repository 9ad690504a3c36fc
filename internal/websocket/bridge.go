package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// The bridge relays room broadcasts between replicas over Redis pub/sub.
// Every broadcast is published to collab:room:<id>; each replica with local
// members of that room is subscribed and fans incoming messages out to its
// own connections. The origin field filters out a replica's own messages,
// which it already delivered locally.

type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func roomChannel(room string) string {
	return fmt.Sprintf("collab:room:%s", room)
}

func (h *Hub) publishBridge(room string, payload []byte) {
	if h.redis == nil {
		return
	}

	envelope, err := json.Marshal(bridgeEnvelope{
		Origin: h.instanceID,
		Data:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal bridge envelope", zap.Error(err))
		return
	}

	if err := h.redis.Publish(context.Background(), roomChannel(room), envelope).Err(); err != nil {
		h.logger.Warn("failed to publish to bridge",
			zap.String("roomId", room),
			zap.Error(err))
	}
}

// ensureSubscribed starts the bridge subscription for a room the first time
// a local client joins it.
func (h *Hub) ensureSubscribed(room string) {
	if h.redis == nil {
		return
	}

	h.mu.Lock()
	if _, ok := h.subs[room]; ok {
		h.mu.Unlock()
		return
	}
	pubsub := h.redis.Subscribe(context.Background(), roomChannel(room))
	h.subs[room] = pubsub
	h.mu.Unlock()

	go func() {
		for msg := range pubsub.Channel() {
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				h.logger.Warn("invalid bridge payload",
					zap.String("roomId", room),
					zap.Error(err))
				continue
			}
			if envelope.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(room, envelope.Data, nil)
		}
	}()
}

// maybeUnsubscribe tears the bridge subscription down once no local client
// remains in the room.
func (h *Hub) maybeUnsubscribe(room string) {
	if h.redis == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.rooms[room]) > 0 {
		return
	}
	if pubsub, ok := h.subs[room]; ok {
		pubsub.Close()
		delete(h.subs, room)
	}
}
