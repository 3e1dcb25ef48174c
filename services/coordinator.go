package services

import (
	"slices"
	"time"

	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/amirrezam75/racerelay/schemas"
	"github.com/google/uuid"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"
)

const notEnoughPlayers = "Not enough players!"

// Rules are the race constants of a room.
type Rules struct {
	MaxLaps     int
	MinPlayers  int
	Countdown   time.Duration
	MusicLead   time.Duration
	FinishGrace time.Duration
}

func DefaultRules() Rules {
	return Rules{
		MaxLaps:     3,
		MinPlayers:  2,
		Countdown:   3 * time.Second,
		MusicLead:   time.Second,
		FinishGrace: 10 * time.Second,
	}
}

// Dispatcher delivers encoded messages to connected players.
type Dispatcher interface {
	Send(envelope *entities.Envelope)
}

type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the goroutine that owns the coordinator.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Archive interface {
	Add(record schemas.RaceRecord)
}

type Publisher interface {
	Publish(message string) error
}

// Coordinator is the race state machine of one room. It is not safe for
// concurrent use: connects, intents, ticks and timer callbacks must all run on
// one goroutine, which RaceService provides.
type Coordinator struct {
	rules   Rules
	catalog entities.Catalog
	race    *entities.Race

	players map[string]*entities.Player
	// Connection order, every list sent to clients follows it.
	order []string

	dispatcher Dispatcher
	scheduler  Scheduler
	archive    Archive
	publisher  Publisher

	countdown    Timer
	countdownGen uint64
	grace        Timer
	graceGen     uint64

	now      func() time.Time
	newColor func() uint32
	newRace  func() string
}

func NewCoordinator(
	rules Rules,
	catalog entities.Catalog,
	dispatcher Dispatcher,
	scheduler Scheduler,
	archive Archive,
	publisher Publisher,
) *Coordinator {
	return &Coordinator{
		rules:      rules,
		catalog:    catalog,
		race:       entities.NewRace(),
		players:    make(map[string]*entities.Player),
		dispatcher: dispatcher,
		scheduler:  scheduler,
		archive:    archive,
		publisher:  publisher,
		now:        time.Now,
		newColor:   func() uint32 { return fastrand.Uint32n(0xFFFFFF) },
		newRace:    uuid.NewString,
	}
}

// Connect seeds a player for a freshly registered connection.
func (c *Coordinator) Connect(id string) {
	if _, exists := c.players[id]; exists {
		return
	}

	player := entities.NewPlayer(id, c.newColor(), c.freeSpawnIndex())
	c.players[id] = player
	c.order = append(c.order, id)

	logx.Logger.Info(
		"player connected",
		zap.String("playerId", id),
		zap.Int("spawnIndex", player.SpawnIndex),
		zap.Int("players", len(c.order)),
	)

	view := c.Snapshot()

	c.send(id, schemas.InitMessage{
		Type:           schemas.TypeInit,
		Id:             id,
		Color:          player.Color,
		Players:        view.Players,
		GameState:      view.GameState,
		MusicStartTime: view.MusicStartTime,
		SelectedSong:   view.SelectedSong,
		Songs:          view.Songs,
		MaxLaps:        view.MaxLaps,
	})

	c.broadcast(schemas.PlayerJoinedMessage{
		Type:   schemas.TypePlayerJoined,
		Player: player.Clone(),
	}, id)

	c.broadcastLobby()
	c.checkRaceStart()
}

// Disconnect drops the player and, if too few remain, aborts the race.
func (c *Coordinator) Disconnect(id string) {
	if _, exists := c.players[id]; !exists {
		return
	}

	delete(c.players, id)
	c.order = slices.DeleteFunc(c.order, func(other string) bool { return other == id })

	logx.Logger.Info(
		"player disconnected",
		zap.String("playerId", id),
		zap.Int("players", len(c.order)),
	)

	c.broadcast(schemas.PlayerLeftMessage{Type: schemas.TypePlayerLeft, Id: id})
	c.broadcastLobby()

	if len(c.order) < c.rules.MinPlayers {
		if c.race.State != entities.StateWaiting {
			c.abort()
		}
		return
	}

	// The departed player may have been the one holding the current gate.
	switch c.race.State {
	case entities.StateWaiting:
		c.checkRaceStart()
	case entities.StatePreparing:
		c.checkAssetsReady()
	case entities.StatePlaying:
		c.checkFinish("")
	}
}

// Handle applies one client intent. Intents that are not valid in the
// current state are ignored without a reply.
func (c *Coordinator) Handle(id string, intent schemas.Intent) {
	player, exists := c.players[id]

	if !exists {
		return
	}

	switch intent := intent.(type) {
	case schemas.JoinLobby:
		player.UpdateProfile(intent.Username, intent.Model)
		c.broadcastLobby()

	case schemas.VoteSong:
		if !c.catalog.Contains(intent.Song) {
			return
		}
		song := intent.Song
		player.Vote = &song
		c.broadcastLobby()

	case schemas.PlayerReady:
		player.SetReady(intent.IsReady)
		c.broadcastLobby()
		c.checkRaceStart()

	case schemas.AssetsReady:
		if c.race.State != entities.StatePreparing {
			return
		}
		player.AssetsReady = true
		c.checkAssetsReady()

	case schemas.TransformUpdate:
		if c.race.State != entities.StatePlaying {
			return
		}
		player.SetTransform(intent.Transform())

	case schemas.LapReport:
		if c.race.State != entities.StatePlaying {
			return
		}
		c.recordLap(player, intent)
	}
}

// Tick rebroadcasts every transform while a race is running.
func (c *Coordinator) Tick() {
	if c.race.State != entities.StatePlaying || len(c.order) == 0 {
		return
	}

	c.broadcast(schemas.StateMessage{
		Type:    schemas.TypeState,
		Players: c.publicPlayers(),
	})
}

// Snapshot is the aggregate state as a new client would receive it.
func (c *Coordinator) Snapshot() schemas.StateView {
	return schemas.StateView{
		Players:        c.publicPlayers(),
		Votes:          c.votes(),
		GameState:      c.race.State,
		SelectedSong:   schemas.Nullable(c.race.SelectedSong),
		MusicStartTime: cloneMillis(c.race.MusicStartTime),
		Songs:          c.catalog.Songs(),
		MaxLaps:        c.rules.MaxLaps,
	}
}

func (c *Coordinator) recordLap(player *entities.Player, report schemas.LapReport) {
	if !player.RecordLap(report.Lap, report.LapTime, report.TotalTime) {
		return
	}

	finished := player.Finish(c.now(), c.rules.MaxLaps)

	c.broadcast(schemas.LapUpdateMessage{
		Type: schemas.TypeLapUpdate,
		Player: schemas.LapProgress{
			Id:        player.Id,
			Lap:       player.Lap,
			LapTime:   report.LapTime,
			TotalTime: player.TotalTime,
			BestLap:   player.BestLap,
			Finished:  player.Finished,
		},
	})

	if finished {
		logx.Logger.Info(
			"player finished",
			zap.String("raceId", c.race.Id),
			zap.String("playerId", player.Id),
		)
		c.checkFinish(player.Id)
	}
}

func (c *Coordinator) checkRaceStart() {
	if c.race.State != entities.StateWaiting || len(c.order) < c.rules.MinPlayers {
		return
	}

	for _, player := range c.players {
		if !player.IsReady {
			return
		}
	}

	c.prepare()
}

func (c *Coordinator) prepare() {
	c.transition(entities.StatePreparing)
	c.race.SelectedSong = c.catalog.Winner(c.castVotes())

	for _, player := range c.players {
		player.ResetRace()
	}

	c.stopGrace()
	c.race.FinishDeadline = nil

	c.broadcast(schemas.PrepareRaceMessage{
		Type:         schemas.TypePrepareRace,
		SelectedSong: c.race.SelectedSong,
		MaxLaps:      c.rules.MaxLaps,
	})
}

func (c *Coordinator) checkAssetsReady() {
	if c.race.State != entities.StatePreparing || len(c.order) < c.rules.MinPlayers {
		return
	}

	for _, player := range c.players {
		if !player.IsReady || !player.AssetsReady {
			return
		}
	}

	c.startCountdown()
}

func (c *Coordinator) startCountdown() {
	c.transition(entities.StateCountdown)

	if c.race.SelectedSong == "" {
		c.race.SelectedSong = c.catalog.Winner(c.castVotes())
	}

	c.broadcast(schemas.CountdownStartMessage{
		Type:         schemas.TypeCountdownStart,
		Duration:     c.rules.Countdown.Seconds(),
		SelectedSong: c.race.SelectedSong,
	})

	c.stopCountdown()
	gen := c.countdownGen
	c.countdown = c.scheduler.AfterFunc(c.rules.Countdown, func() { c.countdownElapsed(gen) })
}

func (c *Coordinator) countdownElapsed(gen uint64) {
	// A cancelled or superseded countdown must never start a race.
	if gen != c.countdownGen || c.countdown == nil {
		return
	}
	c.countdown = nil

	if c.race.State != entities.StateCountdown {
		return
	}

	c.startRace()
}

func (c *Coordinator) startRace() {
	now := c.now()

	c.transition(entities.StatePlaying)
	c.stopGrace()
	c.race.FinishDeadline = nil
	c.race.Id = c.newRace()
	c.race.StartedAt = now

	musicStartTime := entities.Millis(now.Add(c.rules.MusicLead))
	c.race.MusicStartTime = &musicStartTime

	c.broadcast(schemas.GameStartMessage{
		Type:           schemas.TypeGameStart,
		MusicStartTime: musicStartTime,
		SelectedSong:   c.race.SelectedSong,
		MaxLaps:        c.rules.MaxLaps,
	})

	message, err := schemas.RaceStartedEvent(c.race.Id, c.race.SelectedSong, slices.Clone(c.order), musicStartTime)
	c.publish(message, err)
}

// checkFinish ends the race once nobody is still racing. Otherwise the first
// finisher arms the shared grace window, later finishers leave it alone.
func (c *Coordinator) checkFinish(triggeredBy string) {
	if c.race.State != entities.StatePlaying {
		return
	}

	if c.allDone() {
		c.endRace()
		return
	}

	if triggeredBy == "" || c.grace != nil {
		return
	}

	endsAt := entities.Millis(c.now().Add(c.rules.FinishGrace))
	c.race.FinishDeadline = &endsAt

	c.stopGrace()
	gen := c.graceGen
	c.grace = c.scheduler.AfterFunc(c.rules.FinishGrace, func() { c.graceElapsed(gen) })

	c.broadcast(schemas.FinishTimerMessage{
		Type:        schemas.TypeFinishTimer,
		EndsAt:      endsAt,
		TriggeredBy: triggeredBy,
	})
}

func (c *Coordinator) graceElapsed(gen uint64) {
	if gen != c.graceGen || c.grace == nil {
		return
	}
	c.grace = nil

	// Whoever is connected right now is who the results are about.
	if c.race.State != entities.StatePlaying {
		return
	}

	c.endRace()
}

func (c *Coordinator) allDone() bool {
	for _, player := range c.players {
		if !player.Done(c.rules.MaxLaps) {
			return false
		}
	}
	return true
}

// endRace passes through FINISHED and lands in WAITING in one step.
func (c *Coordinator) endRace() {
	now := c.now()

	c.transition(entities.StateFinished)
	c.stopGrace()

	record := schemas.RaceRecord{
		Id:         c.race.Id,
		Song:       c.race.SelectedSong,
		MaxLaps:    c.rules.MaxLaps,
		StartedAt:  entities.Millis(c.race.StartedAt),
		FinishedAt: entities.Millis(now),
		EndsAt:     cloneMillis(c.race.FinishDeadline),
		Results:    c.publicPlayers(),
	}

	c.broadcast(schemas.RaceOverMessage{
		Type:    schemas.TypeRaceOver,
		Results: record.Results,
		EndsAt:  record.EndsAt,
	})

	if c.archive != nil {
		c.archive.Add(record)
	}

	message, err := schemas.RaceOverEvent(record)
	c.publish(message, err)

	c.transition(entities.StateWaiting)
	c.race.Idle()

	for _, player := range c.players {
		player.ResetReadiness()
	}

	c.broadcastLobby()
}

// abort is the recovery path when the room drops below the minimum.
func (c *Coordinator) abort() {
	c.stopCountdown()
	c.stopGrace()

	c.transition(entities.StateWaiting)
	c.race.Idle()

	for _, player := range c.players {
		player.ResetReadiness()
		player.ResetRace()
	}

	c.broadcast(schemas.GameResetMessage{
		Type:    schemas.TypeGameReset,
		Message: notEnoughPlayers,
	})
	c.broadcastLobby()
}

func (c *Coordinator) stopCountdown() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
	c.countdownGen++
}

func (c *Coordinator) stopGrace() {
	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}
	c.graceGen++
}

func (c *Coordinator) transition(to entities.GameState) {
	logx.Logger.Info(
		"race state changed",
		zap.String("from", string(c.race.State)),
		zap.String("to", string(to)),
		zap.String("raceId", c.race.Id),
		zap.Int("players", len(c.order)),
	)
	c.race.State = to
}

// freeSpawnIndex is the smallest grid slot nobody currently holds.
func (c *Coordinator) freeSpawnIndex() int {
	taken := make(map[int]bool, len(c.players))
	for _, player := range c.players {
		taken[player.SpawnIndex] = true
	}

	index := 0
	for taken[index] {
		index++
	}
	return index
}

func (c *Coordinator) castVotes() []string {
	votes := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if vote := c.players[id].Vote; vote != nil {
			votes = append(votes, *vote)
		}
	}
	return votes
}

func (c *Coordinator) votes() map[string]int {
	return c.catalog.Tally(c.castVotes())
}

func (c *Coordinator) publicPlayers() []entities.Player {
	players := make([]entities.Player, 0, len(c.order))
	for _, id := range c.order {
		players = append(players, c.players[id].Clone())
	}
	return players
}

func (c *Coordinator) broadcastLobby() {
	c.broadcast(schemas.LobbyUpdateMessage{
		Type:    schemas.TypeLobbyUpdate,
		Players: c.publicPlayers(),
		Votes:   c.votes(),
	})
}

func (c *Coordinator) broadcast(message any, exclude ...string) {
	receivers := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if !slices.Contains(exclude, id) {
			receivers = append(receivers, id)
		}
	}

	c.dispatch(receivers, message)
}

func (c *Coordinator) send(id string, message any) {
	c.dispatch([]string{id}, message)
}

func (c *Coordinator) dispatch(receivers []string, message any) {
	if len(receivers) == 0 {
		return
	}

	body, err := schemas.Encode(message)

	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not encode outbound message"),
		)
		return
	}

	c.dispatcher.Send(&entities.Envelope{ReceiverIds: receivers, Body: body})
}

func (c *Coordinator) publish(message string, err error) {
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not create publisher event"),
			zap.String("raceId", c.race.Id),
		)
		return
	}

	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(message); err != nil {
		logx.Logger.Warn(
			err.Error(),
			zap.String("desc", "could not publish race event"),
			zap.String("raceId", c.race.Id),
		)
	}
}

func cloneMillis(value *int64) *int64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
