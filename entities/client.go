package entities

import (
	"sync"
	"time"

	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	// Largest inbound frame, a lobby or transform message is far below this.
	maxMessageSize = 4096
)

// Client is the connection side of a player. The race state lives in Player
// and never touches the socket.
type Client struct {
	Id         string
	Connection *websocket.Conn
	Message    chan []byte
	// To keep track of closed channel
	IsClosed bool
	mutex    sync.Mutex

	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewClient(id string, connection *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &Client{
		Id:         id,
		Connection: connection,
		Message:    make(chan []byte, bufferSize),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// Deliver queues body without blocking. It reports false when the client is
// gone or its queue is full.
func (client *Client) Deliver(body []byte) bool {
	client.mutex.Lock()
	defer client.mutex.Unlock()

	if client.IsClosed {
		return false
	}

	select {
	case client.Message <- body:
		return true
	default:
		return false
	}
}

// Kick closes the outbound queue and the socket. It is safe to call more
// than once and from any goroutine.
func (client *Client) Kick() {
	// We are using mutex to make sure IsClosed value is evaluated correctly
	// when reading its value at the same time.
	// https://go101.org/article/channel-closing.html
	client.mutex.Lock()
	defer client.mutex.Unlock()

	if client.IsClosed {
		return
	}

	close(client.Message)
	client.IsClosed = true

	if client.Connection != nil {
		err := client.Connection.Close()

		if err != nil {
			logx.Logger.Debug(
				err.Error(),
				zap.String("desc", "could not close client connection"),
				zap.String("playerId", client.Id),
			)
		}
	}
}

// Write drains the outbound queue into the socket and keeps the peer alive
// with pings. It returns once the queue is closed or a write fails.
func (client *Client) Write() {
	ticker := time.NewTicker(client.pingPeriod)

	defer func() {
		ticker.Stop()
		client.Kick()
	}()

	for {
		select {
		case message, ok := <-client.Message:
			if !ok {
				_ = client.Connection.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait),
				)
				return
			}

			_ = client.Connection.SetWriteDeadline(time.Now().Add(writeWait))

			err := client.Connection.WriteMessage(websocket.TextMessage, message)

			if err != nil {
				logx.Logger.Error(
					err.Error(),
					zap.String("desc", "could not write client message"),
					zap.String("playerId", client.Id),
				)
				return
			}
		case <-ticker.C:
			err := client.Connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))

			if err != nil {
				logx.Logger.Debug(
					err.Error(),
					zap.String("desc", "could not ping client"),
					zap.String("playerId", client.Id),
				)
				return
			}
		}
	}
}

// Read hands every inbound frame to react until the connection fails or the
// peer stops answering pings.
func (client *Client) Read(react func(message []byte)) {
	defer client.Kick()

	client.Connection.SetReadLimit(maxMessageSize)
	_ = client.Connection.SetReadDeadline(time.Now().Add(client.pongWait))
	client.Connection.SetPongHandler(func(string) error {
		return client.Connection.SetReadDeadline(time.Now().Add(client.pongWait))
	})

	for {
		_, message, err := client.Connection.ReadMessage()

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logx.Logger.Info(
					err.Error(),
					zap.String("desc", "could not read client message"),
					zap.String("playerId", client.Id),
				)
			}
			return
		}

		react(message)
	}
}
