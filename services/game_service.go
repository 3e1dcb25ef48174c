package services

import (
	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limits apply to every connection the game service accepts.
type Limits struct {
	ClientBufferSize int
	// Transform updates per second and the burst allowed above it. Control
	// messages are never limited.
	InboundRate  float64
	InboundBurst int
}

type GameService struct {
	hub         *entities.Hub
	raceService *RaceService
	limits      Limits
}

func NewGameService(hub *entities.Hub, raceService *RaceService, limits Limits) GameService {
	return GameService{
		hub:         hub,
		raceService: raceService,
		limits:      limits,
	}
}

// Join registers connection as a new player and starts its write pump. The
// returned reader blocks for the lifetime of the connection and removes the
// player when it returns.
func (gameService GameService) Join(connection *websocket.Conn) func() {
	id := bson.NewObjectID().Hex()

	var throttle Throttle
	if gameService.limits.InboundRate > 0 {
		throttle = rate.NewLimiter(rate.Limit(gameService.limits.InboundRate), gameService.limits.InboundBurst)
	}

	client := entities.NewClient(id, connection, gameService.limits.ClientBufferSize)

	// Register first, the init message is addressed to this id.
	gameService.hub.Register(client)

	if !gameService.raceService.Connect(id) {
		logx.Logger.Warn(
			"connection refused",
			zap.String("desc", "race service is stopped"),
			zap.String("playerId", id),
		)
		gameService.hub.Unregister(id)
		return func() {}
	}

	logx.Logger.Debug("connection accepted", zap.String("playerId", id))

	go client.Write()

	return func() {
		client.Read(func(message []byte) {
			gameService.raceService.Receive(id, message, throttle)
		})

		gameService.raceService.Disconnect(id)
		gameService.hub.Unregister(id)
	}
}
