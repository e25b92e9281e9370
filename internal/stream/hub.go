package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "docstore:"
	channelSuffix = ":changed"
	clientBuffer  = 64
)

// Hub fans out change notifications per topic. With a redis client attached,
// every publish is relayed to the other instances sharing that redis.
type Hub struct {
	redis   *redis.Client
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	cancel  context.CancelFunc
}

type Client struct {
	Topic string
	Send  chan []byte
}

// envelope tags relayed messages so an instance skips its own publishes.
type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		ready := make(chan struct{})
		go h.subscribeRedis(ctx, ready)
		<-ready
	}
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := topicClients[client]; !ok {
		return
	}
	delete(topicClients, client)
	if len(topicClients) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast delivers payload to local listeners of topic and relays it through redis.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.deliver(topic, payload)

	if h.redis != nil {
		msg, _ := json.Marshal(envelope{Origin: h.origin, Payload: payload})
		err := h.redis.Publish(context.Background(), redisChannel(topic), msg).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// Publish and Listen make the hub usable as a document-store change feed.
func (h *Hub) Publish(topic string, payload []byte) {
	h.Broadcast(topic, payload)
}

func (h *Hub) Listen(topic string) (<-chan []byte, func()) {
	client := h.Register(topic)
	var once sync.Once
	return client.Send, func() {
		once.Do(func() { h.Unregister(client) })
	}
}

// Close stops the redis relay.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	// Sends happen under the read lock so Unregister cannot close a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, ready chan<- struct{}) {
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis relay disabled: %v", err)
		close(ready)
		return
	}
	ch := pubsub.Channel()
	close(ready)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("redis relay: malformed message on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			topic := topicFromChannel(msg.Channel)
			if topic == "" {
				continue
			}
			h.deliver(topic, env.Payload)
		}
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic + channelSuffix
}

func topicFromChannel(ch string) string {
	// docstore:{topic}:changed
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
