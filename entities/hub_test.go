package entities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case body, ok := <-client.Message:
		require.True(t, ok, "client queue closed unexpectedly")
		return body
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message to %s", client.Id)
		return nil
	}
}

func TestHubDeliversToReceiversOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx, 0)
	a := NewClient("a", nil, 4)
	b := NewClient("b", nil, 4)
	hub.Register(a)
	hub.Register(b)

	go hub.Run()

	hub.Send(&Envelope{ReceiverIds: []string{"a"}, Body: []byte("first")})
	hub.Send(&Envelope{ReceiverIds: []string{"a", "b", "gone"}, Body: []byte("second")})

	assert.Equal(t, "first", string(receive(t, a)))
	assert.Equal(t, "second", string(receive(t, a)))
	assert.Equal(t, "second", string(receive(t, b)))
}

func TestClientDeliverDropsWhenFull(t *testing.T) {
	client := NewClient("a", nil, 1)

	assert.True(t, client.Deliver([]byte("1")))
	assert.False(t, client.Deliver([]byte("2")))

	client.Kick()
	client.Kick()
	assert.False(t, client.Deliver([]byte("3")))
}

func TestHubUnregisterKicks(t *testing.T) {
	hub := NewHub(context.Background(), 1)
	client := NewClient("a", nil, 1)
	hub.Register(client)

	hub.Unregister("a")

	_, ok := <-client.Message
	assert.False(t, ok)
	_, registered := hub.Clients.Load("a")
	assert.False(t, registered)
}

func TestHubShutdownKicksClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx, 1)
	client := NewClient("a", nil, 1)
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	_, ok := <-client.Message
	assert.False(t, ok)

	// Send must not block once the hub is gone.
	hub.Send(&Envelope{ReceiverIds: []string{"a"}, Body: []byte("late")})
	hub.Send(&Envelope{ReceiverIds: []string{"a"}, Body: []byte("later")})
}
