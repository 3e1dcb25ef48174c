package entities

import "time"

type GameState string

const (
	StateWaiting   GameState = "WAITING"
	StatePreparing GameState = "PREPARING"
	StateCountdown GameState = "COUNTDOWN"
	StatePlaying   GameState = "PLAYING"
	StateFinished  GameState = "FINISHED"
)

// Race is the single room-wide state. It is created once and reset on every
// return to WAITING, never replaced.
type Race struct {
	// Id identifies the race in progress, it is empty outside PLAYING.
	Id           string
	State        GameState
	SelectedSong string
	// Epoch milliseconds, nil when no race is scheduled.
	MusicStartTime *int64
	FinishDeadline *int64
	StartedAt      time.Time
}

func NewRace() *Race {
	return &Race{State: StateWaiting}
}

// Idle folds the race back into WAITING. SelectedSong survives so that a
// freshly connecting client still sees what was played last.
func (race *Race) Idle() {
	race.Id = ""
	race.State = StateWaiting
	race.MusicStartTime = nil
	race.FinishDeadline = nil
	race.StartedAt = time.Time{}
}

// Millis converts t to the epoch milliseconds used on the wire.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
