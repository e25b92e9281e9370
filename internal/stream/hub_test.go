package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("rotas_em_andamento")
	defer hub.Unregister(client)

	hub.Broadcast("rotas_em_andamento", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubTopicsAreIsolated(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Register("a")
	b := hub.Register("b")
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Broadcast("a", []byte("x"))

	select {
	case <-b.Send:
		t.Fatalf("topic b should not receive topic a messages")
	case <-time.After(20 * time.Millisecond):
	}
	if len(a.Send) != 1 {
		t.Fatalf("expected one message on topic a")
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "docstore:abc:changed" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if topicFromChannel(ch) != "abc" {
		t.Fatalf("unexpected topic")
	}
	if topicFromChannel("bad") != "" {
		t.Fatalf("expected empty topic")
	}
	if topicFromChannel("docstore::changed") != "" {
		t.Fatalf("expected empty topic for empty name")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("session-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
	// second unregister is a no-op
	hub.Unregister(client)
}

func TestListenCancelIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	events, cancel := hub.Listen("topic")
	hub.Publish("topic", []byte("1"))
	if msg := <-events; string(msg) != "1" {
		t.Fatalf("unexpected message %q", msg)
	}
	cancel()
	cancel()
	hub.Publish("topic", []byte("2"))
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestHubFullBufferDrops(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("t")
	defer hub.Unregister(client)
	for i := 0; i < clientBuffer+10; i++ {
		hub.Broadcast("t", []byte("x"))
	}
	if len(client.Send) != clientBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", clientBuffer, len(client.Send))
	}
}

func TestHubRedisRelayFromOtherInstance(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client)
	defer hub.Close()
	ws := hub.Register("rotas_em_andamento")
	defer hub.Unregister(ws)

	// local broadcast arrives once, the relayed copy of our own publish is skipped
	hub.Broadcast("rotas_em_andamento", []byte("ping"))
	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for broadcast")
	}
	select {
	case msg := <-ws.Send:
		t.Fatalf("own publish delivered twice: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}

	other, _ := json.Marshal(envelope{Origin: "other-instance", Payload: []byte("pong")})
	if err := client.Publish(context.Background(), "docstore:rotas_em_andamento:changed", other).Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	select {
	case msg := <-ws.Send:
		if string(msg) != "pong" {
			t.Fatalf("unexpected message from redis: %q", msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for redis message")
	}
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	hub := NewHub(client)
	defer hub.Close()
	server.Close()

	clientNode := hub.Register("session-bad")
	defer hub.Unregister(clientNode)

	hub.Broadcast("session-bad", []byte("ping"))
	if len(clientNode.Send) != 1 {
		t.Fatalf("local delivery should not depend on redis")
	}
}
