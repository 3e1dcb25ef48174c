package gameserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/handlers"
	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/amirrezam75/racerelay/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type publisher interface {
	services.Publisher
	Run(ctx context.Context) error
}

// GameServer encapsulates all game server functionality
type GameServer struct {
	config      Config
	context     context.Context
	cancel      context.CancelFunc
	router      *chi.Mux
	hub         *entities.Hub
	raceService *services.RaceService
	publisher   publisher
}

// NewGameServer wires every component. Nothing runs until Run or Serve.
func NewGameServer(ctx context.Context, config Config) (*GameServer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	catalog, err := config.Catalog()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	hub := entities.NewHub(ctx, config.DispatchBufferSize)

	var publisherService publisher = services.NopPublisher{}

	if config.Redis.Host != "" {
		publisherService = services.NewPublisherService(
			config.Redis.Host,
			config.Redis.Port,
			config.Redis.Password,
			config.Redis.Channel,
			0,
		)
	}

	resultService, err := services.NewResultService(config.ResultsCacheSize)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("can not create race archive: %w", err)
	}

	raceService := services.NewRaceService(
		config.Rules(),
		catalog,
		hub,
		resultService,
		publisherService,
		config.TickInterval,
	)

	gameService := services.NewGameService(hub, raceService, config.Limits())

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	handlers.NewGameHandler(router, gameService, config.AllowedOrigins)
	handlers.NewRaceHandler(router, raceService, resultService, catalog.Songs(), config.MaxLaps)

	return &GameServer{
		config:      config,
		context:     ctx,
		cancel:      cancel,
		router:      router,
		hub:         hub,
		raceService: raceService,
		publisher:   publisherService,
	}, nil
}

// Run listens on the configured port and serves until the context given to
// NewGameServer is cancelled or a component fails.
func (gs *GameServer) Run() error {
	listener, err := net.Listen("tcp", ":"+gs.config.Port)
	if err != nil {
		gs.cancel()
		return fmt.Errorf("listen on port %s: %w", gs.config.Port, err)
	}

	return gs.Serve(listener)
}

func (gs *GameServer) Serve(listener net.Listener) error {
	defer gs.cancel()

	server := &http.Server{
		Handler:           gs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(gs.context)

	group.Go(func() error {
		gs.hub.Run()
		return nil
	})

	group.Go(func() error {
		return gs.raceService.Run(ctx)
	})

	group.Go(func() error {
		return gs.publisher.Run(ctx)
	})

	group.Go(func() error {
		logx.Logger.Info("race server is listening", zap.String("addr", listener.Addr().String()))

		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()

		// The hub is bound to the server context, not the group one.
		gs.cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
