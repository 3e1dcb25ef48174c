package handlers

import (
	"net/http"
	"slices"

	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/go-chi/chi/v5"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Joiner accepts an upgraded connection into the room.
type Joiner interface {
	Join(connection *websocket.Conn) func()
}

type GameHandler struct {
	gameService Joiner
	upgrader    websocket.Upgrader
}

func NewGameHandler(router chi.Router, gameService Joiner, allowedOrigins []string) {
	gameHandler := GameHandler{
		gameService: gameService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}

	router.Get("/", gameHandler.join)
}

func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Non browser clients send no origin.
		if origin == "" || slices.Contains(allowedOrigins, "*") {
			return true
		}

		return slices.Contains(allowedOrigins, origin)
	}
}

func (gameHandler GameHandler) join(w http.ResponseWriter, r *http.Request) {
	connection, err := gameHandler.upgrader.Upgrade(w, r, nil)

	if err != nil {
		// Upgrade has already answered the request.
		logx.Logger.Info(
			err.Error(),
			zap.String("desc", "could not upgrade http request"),
		)
		return
	}

	reader := gameHandler.gameService.Join(connection)

	reader()
}
