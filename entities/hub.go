package entities

import (
	"context"

	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/amirrezam75/racerelay/pkg/syncx"
	"go.uber.org/zap"
)

// Envelope is one encoded outbound message and the players it is for.
type Envelope struct {
	ReceiverIds []string
	Body        []byte
}

// Hub is the connection registry of the room. It owns delivery: envelopes
// are fanned out in the order they were dispatched.
type Hub struct {
	Clients syncx.Map[string, *Client]

	Context context.Context

	Dispatch chan *Envelope
}

// NewHub creates a hub bound to ctx. Cancelling ctx stops Run and kicks
// every registered client.
func NewHub(ctx context.Context, dispatchBufferSize int) *Hub {
	// Zero or negative values could cause unbuffered channels or panics
	bufferSize := dispatchBufferSize

	if bufferSize <= 0 {
		bufferSize = 500
	}

	return &Hub{
		Context:  ctx,
		Dispatch: make(chan *Envelope, bufferSize),
	}
}

func (hub *Hub) Register(client *Client) {
	hub.Clients.Store(client.Id, client)

	logx.Logger.Debug(
		"client registered",
		zap.String("playerId", client.Id),
		zap.Int("clients", hub.Clients.Len()),
	)
}

func (hub *Hub) Unregister(id string) {
	if client, ok := hub.Clients.LoadAndDelete(id); ok {
		client.Kick()
	}
}

// Send queues envelope for delivery. It only blocks while the dispatch
// queue is full and gives up once the hub is shut down.
func (hub *Hub) Send(envelope *Envelope) {
	select {
	case hub.Dispatch <- envelope:
	case <-hub.Context.Done():
	}
}

// Run delivers dispatched envelopes until the hub context is cancelled.
func (hub *Hub) Run() {
	for {
		select {
		case <-hub.Context.Done():
			hub.Clients.Range(func(id string, client *Client) bool {
				client.Kick()
				return true
			})
			return
		case envelope := <-hub.Dispatch:
			hub.deliver(envelope)
		}
	}
}

func (hub *Hub) deliver(envelope *Envelope) {
	for _, receiverId := range envelope.ReceiverIds {
		client, ok := hub.Clients.Load(receiverId)

		if !ok {
			continue
		}

		if !client.Deliver(envelope.Body) {
			logx.Logger.Warn(
				"outbound message dropped",
				zap.String("desc", "client queue is full or closed"),
				zap.String("playerId", receiverId),
			)
		}
	}
}
