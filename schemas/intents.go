package schemas

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amirrezam75/racerelay/entities"
)

// Client to server message types. lap_update shares its tag with the server
// broadcast of the same name.
const (
	TypeJoinLobby   = "join_lobby"
	TypeVoteSong    = "vote_song"
	TypePlayerReady = "player_ready"
	TypeAssetsReady = "assets_ready"
	TypeUpdate      = "update"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
)

// Intent is one decoded client request.
type Intent interface{ isIntent() }

type JoinLobby struct {
	Username string `json:"username"`
	Model    string `json:"model"`
}

type VoteSong struct {
	Song string `json:"song"`
}

type PlayerReady struct {
	IsReady bool `json:"isReady"`
}

type AssetsReady struct{}

type TransformUpdate struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Qx       float64 `json:"qx"`
	Qy       float64 `json:"qy"`
	Qz       float64 `json:"qz"`
	Qw       float64 `json:"qw"`
	Velocity float64 `json:"velocity"`
}

type LapReport struct {
	Lap       int      `json:"lap"`
	LapTime   *float64 `json:"lapTime"`
	TotalTime *float64 `json:"totalTime"`
}

func (JoinLobby) isIntent()       {}
func (VoteSong) isIntent()        {}
func (PlayerReady) isIntent()     {}
func (AssetsReady) isIntent()     {}
func (TransformUpdate) isIntent() {}
func (LapReport) isIntent()       {}

func (update TransformUpdate) Transform() entities.Transform {
	return entities.Transform{
		X: update.X, Y: update.Y, Z: update.Z,
		Qx: update.Qx, Qy: update.Qy, Qz: update.Qz, Qw: update.Qw,
		Velocity: update.Velocity,
	}
}

// DecodeIntent parses a raw client frame. The type tag selects the payload.
func DecodeIntent(raw []byte) (Intent, error) {
	var envelope struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch envelope.Type {
	case TypeJoinLobby:
		return decodeAs[JoinLobby](envelope.Type, raw)
	case TypeVoteSong:
		return decodeAs[VoteSong](envelope.Type, raw)
	case TypePlayerReady:
		return decodeAs[PlayerReady](envelope.Type, raw)
	case TypeAssetsReady:
		return AssetsReady{}, nil
	case TypeUpdate:
		return decodeAs[TransformUpdate](envelope.Type, raw)
	case TypeLapUpdate:
		return decodeAs[LapReport](envelope.Type, raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

func decodeAs[T Intent](messageType string, raw []byte) (Intent, error) {
	var intent T

	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, messageType, err)
	}

	return intent, nil
}
