package entities

import "time"

const (
	DefaultUsername = "Racer"
	DefaultModel    = "mercedes.glb"
)

// lapTimes grows with the reported lap number, cap it so a single bogus
// report cannot allocate unbounded memory.
const maxRecordedLaps = 256

// Player is one live connection's race record. It carries no connection
// handle and is safe to serialize as is.
type Player struct {
	Id          string  `json:"id"`
	Username    string  `json:"username"`
	Model       string  `json:"model"`
	Color       uint32  `json:"color"`
	IsReady     bool    `json:"isReady"`
	AssetsReady bool    `json:"assetsReady"`
	SpawnIndex  int     `json:"spawnIndex"`
	Vote        *string `json:"vote"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Qx       float64 `json:"qx"`
	Qy       float64 `json:"qy"`
	Qz       float64 `json:"qz"`
	Qw       float64 `json:"qw"`
	Velocity float64 `json:"velocity"`

	Lap        int        `json:"lap"`
	LapTimes   []*float64 `json:"lapTimes"`
	BestLap    *float64   `json:"bestLap"`
	TotalTime  *float64   `json:"totalTime"`
	Finished   bool       `json:"finished"`
	FinishTime *int64     `json:"finishTime"`
}

type Transform struct {
	X, Y, Z        float64
	Qx, Qy, Qz, Qw float64
	Velocity       float64
}

func NewPlayer(id string, color uint32, spawnIndex int) *Player {
	return &Player{
		Id:         id,
		Username:   DefaultUsername,
		Model:      DefaultModel,
		Color:      color,
		SpawnIndex: spawnIndex,
		LapTimes:   []*float64{},
	}
}

// UpdateProfile overwrites the provided cosmetic fields. Any profile change
// invalidates readiness.
func (player *Player) UpdateProfile(username, model string) {
	if username != "" {
		player.Username = username
	}
	if model != "" {
		player.Model = model
	}
	player.IsReady = false
}

func (player *Player) SetReady(ready bool) {
	player.IsReady = ready
	player.AssetsReady = false
}

func (player *Player) SetTransform(transform Transform) {
	player.X, player.Y, player.Z = transform.X, transform.Y, transform.Z
	player.Qx, player.Qy, player.Qz, player.Qw = transform.Qx, transform.Qy, transform.Qz, transform.Qw
	player.Velocity = transform.Velocity
}

// RecordLap applies a lap report. Reports that do not move the lap counter
// forward are rejected and leave the record untouched.
func (player *Player) RecordLap(lap int, lapTime, totalTime *float64) bool {
	if lap <= player.Lap {
		return false
	}

	player.Lap = lap

	if lapTime != nil && lap <= maxRecordedLaps {
		for len(player.LapTimes) < lap {
			player.LapTimes = append(player.LapTimes, nil)
		}
		value := *lapTime
		player.LapTimes[lap-1] = &value
	}

	if totalTime != nil {
		value := *totalTime
		player.TotalTime = &value
	}

	player.BestLap = bestOf(player.LapTimes)

	return true
}

// Finish marks the player finished the first time the lap target is reached.
func (player *Player) Finish(now time.Time, maxLaps int) bool {
	if player.Finished || player.Lap < maxLaps {
		return false
	}

	player.Finished = true
	finishTime := Millis(now)
	player.FinishTime = &finishTime

	return true
}

// Done reports whether the player no longer holds the race open.
func (player *Player) Done(maxLaps int) bool {
	return player.Finished || player.Lap >= maxLaps
}

func (player *Player) ResetReadiness() {
	player.IsReady = false
	player.AssetsReady = false
}

// ResetRace clears everything a race writes. Votes and cosmetics stay.
func (player *Player) ResetRace() {
	player.AssetsReady = false
	player.Lap = 0
	player.LapTimes = []*float64{}
	player.BestLap = nil
	player.TotalTime = nil
	player.Finished = false
	player.FinishTime = nil
}

// Clone returns a deep copy that shares no pointers with the live record.
func (player *Player) Clone() Player {
	clone := *player

	clone.Vote = cloneOf(player.Vote)
	clone.BestLap = cloneOf(player.BestLap)
	clone.TotalTime = cloneOf(player.TotalTime)
	clone.FinishTime = cloneOf(player.FinishTime)

	clone.LapTimes = make([]*float64, len(player.LapTimes))
	for i, lapTime := range player.LapTimes {
		clone.LapTimes[i] = cloneOf(lapTime)
	}

	return clone
}

func bestOf(lapTimes []*float64) *float64 {
	var best *float64

	for _, lapTime := range lapTimes {
		if lapTime == nil {
			continue
		}
		if best == nil || *lapTime < *best {
			value := *lapTime
			best = &value
		}
	}

	return best
}

func cloneOf[T any](value *T) *T {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
