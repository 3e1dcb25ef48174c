package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/amirrezam75/racerelay/schemas"
	"go.uber.org/zap"
)

var ErrRaceServiceStopped = errors.New("race service is stopped")

const eventQueueSize = 256

// Throttle limits how often one connection may stream transforms.
// *rate.Limiter satisfies it.
type Throttle interface {
	Allow() bool
}

// RaceService serializes everything that touches the Coordinator onto the
// goroutine running Run. Connection goroutines and timers only post closures.
type RaceService struct {
	coordinator  *Coordinator
	events       chan func()
	tickInterval time.Duration
	done         chan struct{}
	stop         sync.Once
}

func NewRaceService(
	rules Rules,
	catalog entities.Catalog,
	dispatcher Dispatcher,
	archive Archive,
	publisher Publisher,
	tickInterval time.Duration,
) *RaceService {
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}

	raceService := &RaceService{
		events:       make(chan func(), eventQueueSize),
		tickInterval: tickInterval,
		done:         make(chan struct{}),
	}

	raceService.coordinator = NewCoordinator(rules, catalog, dispatcher, raceService, archive, publisher)

	return raceService
}

// AfterFunc fires f on the loop goroutine, not on the timer's own goroutine.
func (raceService *RaceService) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { raceService.post(f) })
}

// Run owns the coordinator until ctx is cancelled.
func (raceService *RaceService) Run(ctx context.Context) error {
	defer raceService.stop.Do(func() { close(raceService.done) })

	ticker := time.NewTicker(raceService.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-raceService.events:
			event()
		case <-ticker.C:
			raceService.coordinator.Tick()
		}
	}
}

// Connect reports false when the loop has already stopped.
func (raceService *RaceService) Connect(id string) bool {
	return raceService.post(func() { raceService.coordinator.Connect(id) })
}

func (raceService *RaceService) Disconnect(id string) {
	raceService.post(func() { raceService.coordinator.Disconnect(id) })
}

// Receive decodes on the caller's goroutine so a malformed frame never
// reaches the loop. Only transform updates are subject to throttle, control
// messages always get through.
func (raceService *RaceService) Receive(id string, raw []byte, throttle Throttle) {
	intent, err := schemas.DecodeIntent(raw)

	if err != nil {
		logx.Logger.Warn(
			err.Error(),
			zap.String("desc", "could not decode client message"),
			zap.String("playerId", id),
		)
		return
	}

	if _, ok := intent.(schemas.TransformUpdate); ok && throttle != nil && !throttle.Allow() {
		logx.Logger.Debug(
			"transform update dropped by rate limit",
			zap.String("playerId", id),
		)
		return
	}

	raceService.post(func() { raceService.coordinator.Handle(id, intent) })
}

// Snapshot reads the aggregate state from outside the loop.
func (raceService *RaceService) Snapshot(ctx context.Context) (schemas.StateView, error) {
	reply := make(chan schemas.StateView, 1)

	if !raceService.post(func() { reply <- raceService.coordinator.Snapshot() }) {
		return schemas.StateView{}, ErrRaceServiceStopped
	}

	select {
	case view := <-reply:
		return view, nil
	case <-ctx.Done():
		return schemas.StateView{}, ctx.Err()
	case <-raceService.done:
		return schemas.StateView{}, ErrRaceServiceStopped
	}
}

func (raceService *RaceService) post(event func()) bool {
	select {
	case <-raceService.done:
		return false
	default:
	}

	select {
	case raceService.events <- event:
		return true
	case <-raceService.done:
		return false
	}
}
