package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.topics)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{
		hub:   hub,
		topic: "exam-1",
		send:  make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, hub.TopicClients("exam-1"))
	assert.Equal(t, 1, hub.ClientCount())

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.TopicClients("exam-1"))
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{
		hub:   hub,
		topic: "exam-1",
		send:  make(chan []byte, 10),
	}

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	testData := map[string]string{"kind": "tab_switch"}
	hub.Broadcast("exam-1", EventViolationRecorded, testData)

	select {
	case msg := <-client.send:
		var event Event
		err := json.Unmarshal(msg, &event)
		assert.NoError(t, err)
		assert.Equal(t, EventViolationRecorded, event.Type)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_TopicIsolation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client1 := &Client{
		hub:   hub,
		topic: "exam-1",
		send:  make(chan []byte, 10),
	}

	client2 := &Client{
		hub:   hub,
		topic: "exam-2",
		send:  make(chan []byte, 10),
	}

	hub.register <- client1
	hub.register <- client2
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast("exam-1", EventCameraConnected, map[string]string{"sessionId": "exam-1"})

	select {
	case <-client1.send:
	case <-time.After(1 * time.Second):
		t.Fatal("exam-1 subscriber should receive the event")
	}

	select {
	case <-client2.send:
		t.Fatal("exam-2 subscriber should not see exam-1 events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Zero-capacity send channel with no reader simulates a stuck client.
	client := &Client{
		hub:   hub,
		topic: "exam-1",
		send:  make(chan []byte),
	}

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast("exam-1", EventFramePlaceholder, nil)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.TopicClients("exam-1"))

	_, open := <-client.send
	assert.False(t, open, "dropped client's send channel should be closed")
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(context.Background())
		close(done)
	}()

	hub.Stop()
	hub.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("hub did not stop")
	}
}
