package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// RedisPublisher publishes feed events for cross-process delivery.
type RedisPublisher interface {
	PublishEvent(event string, payload []byte) error
}

// RedisSubscriber subscribes to the feed channel and invokes handler
// for incoming events. Returns a cancel function.
type RedisSubscriber interface {
	Subscribe(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains the set of WebSocket subscribers to the live tracking
// event feed and broadcasts every event to them. With Redis configured,
// events travel through the pub/sub channel so other processes (and the
// watch CLI) see them too; without it, delivery is local only.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	redisPub RedisPublisher
	cancel   func()
	logger   *zap.Logger
}

// NewHub creates a feed hub. redisPub and redisSub may be nil.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:  make(map[string]*Client),
		redisPub: redisPub,
		logger:   logger,
	}
	if redisSub != nil {
		cancel, err := redisSub.Subscribe(func(event string, payload []byte) {
			h.broadcast(event, payload)
		})
		if err != nil {
			logger.Warn("redis feed subscription failed, falling back to local delivery", zap.Error(err))
			h.redisPub = nil
		} else {
			h.cancel = cancel
		}
	}
	return h
}

// Publish implements stats.Publisher. With Redis the event is published
// to the channel and echoed back to local clients by the subscription;
// otherwise it goes straight to local clients.
func (h *Hub) Publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal feed event", zap.String("event", event), zap.Error(err))
		return
	}
	if h.redisPub != nil {
		if err := h.redisPub.PublishEvent(event, data); err == nil {
			return
		}
		h.logger.Warn("redis publish failed, delivering locally", zap.String("event", event))
	}
	h.broadcast(event, data)
}

func (h *Hub) broadcast(event string, payload []byte) {
	msg := WSMessage{Event: event, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow consumer; drop the event rather than block the feed.
		}
	}
}

// register adds a subscriber connection.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.Int("subscribers", n))
}

// unregister removes a subscriber connection.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed client left", zap.String("client_id", c.ID), zap.Int("subscribers", n))
}

// Close stops the Redis subscription, if any.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}
