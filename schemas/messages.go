package schemas

import (
	"encoding/json"

	"github.com/amirrezam75/racerelay/entities"
)

// Server to client message types.
const (
	TypeInit           = "init"
	TypePlayerJoined   = "player_joined"
	TypePlayerLeft     = "player_left"
	TypeLobbyUpdate    = "lobby_update"
	TypePrepareRace    = "prepare_race"
	TypeCountdownStart = "countdown_start"
	TypeGameStart      = "game_start"
	TypeLapUpdate      = "lap_update"
	TypeFinishTimer    = "finish_timer"
	TypeRaceOver       = "race_over"
	TypeGameReset      = "game_reset"
	TypeState          = "state"
)

type InitMessage struct {
	Type           string             `json:"type"`
	Id             string             `json:"id"`
	Color          uint32             `json:"color"`
	Players        []entities.Player  `json:"players"`
	GameState      entities.GameState `json:"gameState"`
	MusicStartTime *int64             `json:"musicStartTime"`
	SelectedSong   *string            `json:"selectedSong"`
	Songs          []string           `json:"songs"`
	MaxLaps        int                `json:"maxLaps"`
}

type PlayerJoinedMessage struct {
	Type   string          `json:"type"`
	Player entities.Player `json:"player"`
}

type PlayerLeftMessage struct {
	Type string `json:"type"`
	Id   string `json:"id"`
}

type LobbyUpdateMessage struct {
	Type    string            `json:"type"`
	Players []entities.Player `json:"players"`
	Votes   map[string]int    `json:"votes"`
}

type PrepareRaceMessage struct {
	Type         string `json:"type"`
	SelectedSong string `json:"selectedSong"`
	MaxLaps      int    `json:"maxLaps"`
}

type CountdownStartMessage struct {
	Type string `json:"type"`
	// Duration is in seconds.
	Duration     float64 `json:"duration"`
	SelectedSong string  `json:"selectedSong"`
}

type GameStartMessage struct {
	Type           string `json:"type"`
	MusicStartTime int64  `json:"musicStartTime"`
	SelectedSong   string `json:"selectedSong"`
	MaxLaps        int    `json:"maxLaps"`
}

type LapProgress struct {
	Id        string   `json:"id"`
	Lap       int      `json:"lap"`
	LapTime   *float64 `json:"lapTime"`
	TotalTime *float64 `json:"totalTime"`
	BestLap   *float64 `json:"bestLap"`
	Finished  bool     `json:"finished"`
}

type LapUpdateMessage struct {
	Type   string      `json:"type"`
	Player LapProgress `json:"player"`
}

type FinishTimerMessage struct {
	Type        string `json:"type"`
	EndsAt      int64  `json:"endsAt"`
	TriggeredBy string `json:"triggeredBy"`
}

type RaceOverMessage struct {
	Type    string            `json:"type"`
	Results []entities.Player `json:"results"`
	EndsAt  *int64            `json:"endsAt"`
}

type GameResetMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type StateMessage struct {
	Type    string            `json:"type"`
	Players []entities.Player `json:"players"`
}

// Encode serializes any server message.
func Encode(message any) ([]byte, error) {
	return json.Marshal(message)
}

// StateView is the aggregate a newly connecting client needs, it is also
// served over HTTP.
type StateView struct {
	Players        []entities.Player  `json:"players"`
	Votes          map[string]int     `json:"votes"`
	GameState      entities.GameState `json:"gameState"`
	SelectedSong   *string            `json:"selectedSong"`
	MusicStartTime *int64             `json:"musicStartTime"`
	Songs          []string           `json:"songs"`
	MaxLaps        int                `json:"maxLaps"`
}

// RaceRecord is a finished race as kept by the archive.
type RaceRecord struct {
	Id         string            `json:"id"`
	Song       string            `json:"song"`
	MaxLaps    int               `json:"maxLaps"`
	StartedAt  int64             `json:"startedAt"`
	FinishedAt int64             `json:"finishedAt"`
	EndsAt     *int64            `json:"endsAt"`
	Results    []entities.Player `json:"results"`
}

func Nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
