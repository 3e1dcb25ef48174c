package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedDispatcher struct {
	mutex sync.Mutex
	inner recordingDispatcher
}

func (dispatcher *lockedDispatcher) Send(envelope *entities.Envelope) {
	dispatcher.mutex.Lock()
	defer dispatcher.mutex.Unlock()
	dispatcher.inner.Send(envelope)
}

func (dispatcher *lockedDispatcher) count(messageType string) int {
	dispatcher.mutex.Lock()
	defer dispatcher.mutex.Unlock()
	return len(dispatcher.inner.ofType(messageType))
}

func startRaceService(t *testing.T, rules Rules) (*RaceService, *lockedDispatcher) {
	t.Helper()

	catalog, err := entities.NewCatalog(testSongs)
	require.NoError(t, err)

	dispatcher := &lockedDispatcher{}
	raceService := NewRaceService(rules, catalog, dispatcher, nil, NopPublisher{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- raceService.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("race service did not stop")
		}
	})

	return raceService, dispatcher
}

func TestRaceServiceRunsFullRace(t *testing.T) {
	rules := DefaultRules()
	rules.MaxLaps = 1
	rules.Countdown = 10 * time.Millisecond
	rules.FinishGrace = time.Minute
	raceService, dispatcher := startRaceService(t, rules)

	raceService.Connect("a")
	raceService.Connect("b")

	for _, id := range []string{"a", "b"} {
		raceService.Receive(id, []byte(`{"type":"player_ready","isReady":true}`), nil)
		raceService.Receive(id, []byte(`{"type":"assets_ready"}`), nil)
	}

	require.Eventually(t, func() bool {
		return dispatcher.count(schemas.TypeGameStart) == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return dispatcher.count(schemas.TypeState) > 0
	}, time.Second, 5*time.Millisecond)

	raceService.Receive("a", []byte(`{"type":"lap_update","lap":1,"lapTime":20.5,"totalTime":20.5}`), nil)
	raceService.Receive("b", []byte(`{"type":"lap_update","lap":1,"lapTime":21,"totalTime":21}`), nil)

	require.Eventually(t, func() bool {
		return dispatcher.count(schemas.TypeRaceOver) == 1
	}, time.Second, 5*time.Millisecond)

	view, err := raceService.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StateWaiting, view.GameState)
	assert.Len(t, view.Players, 2)
}

func TestRaceServiceIgnoresMalformedMessages(t *testing.T) {
	raceService, dispatcher := startRaceService(t, DefaultRules())

	raceService.Connect("a")
	raceService.Receive("a", []byte(`{"type":"vote_song","song":`), nil)
	raceService.Receive("a", []byte(`{"type":"teleport"}`), nil)
	raceService.Receive("a", []byte(`{"type":"vote_song","song":"Children.mp3"}`), nil)

	view, err := raceService.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Players, 1)
	require.NotNil(t, view.Players[0].Vote)
	assert.Equal(t, "Children.mp3", *view.Players[0].Vote)
	assert.Equal(t, 1, view.Votes["Children.mp3"])

	// One lobby update for the connect and one for the vote.
	assert.Equal(t, 2, dispatcher.count(schemas.TypeLobbyUpdate))
}

func TestRaceServiceSnapshotAfterStop(t *testing.T) {
	catalog, err := entities.NewCatalog(testSongs)
	require.NoError(t, err)

	raceService := NewRaceService(DefaultRules(), catalog, &lockedDispatcher{}, nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, raceService.Run(ctx))

	_, err = raceService.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrRaceServiceStopped)

	// Posting to a stopped loop must not block.
	raceService.Connect("late")
	raceService.Disconnect("late")
}

type closedThrottle struct{}

func (closedThrottle) Allow() bool { return false }

func TestReceiveThrottlesOnlyTransforms(t *testing.T) {
	rules := DefaultRules()
	rules.Countdown = 10 * time.Millisecond
	raceService, _ := startRaceService(t, rules)

	throttle := closedThrottle{}

	raceService.Connect("a")
	raceService.Connect("b")
	raceService.Receive("a", []byte(`{"type":"join_lobby","username":"Speedy"}`), throttle)

	for _, id := range []string{"a", "b"} {
		raceService.Receive(id, []byte(`{"type":"player_ready","isReady":true}`), throttle)
		raceService.Receive(id, []byte(`{"type":"assets_ready"}`), throttle)
	}

	require.Eventually(t, func() bool {
		view, err := raceService.Snapshot(context.Background())
		return err == nil && view.GameState == entities.StatePlaying
	}, time.Second, 5*time.Millisecond)

	raceService.Receive("a", []byte(`{"type":"update","x":42}`), throttle)
	raceService.Receive("a", []byte(`{"type":"lap_update","lap":1,"lapTime":20,"totalTime":20}`), throttle)

	view, err := raceService.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Players, 2)

	player := view.Players[0]
	assert.Equal(t, "Speedy", player.Username)
	assert.Equal(t, 1, player.Lap)
	assert.Zero(t, player.X)
}
