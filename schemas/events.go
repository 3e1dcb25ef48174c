package schemas

import (
	"encoding/json"
)

// PublisherEvent is what goes out on the broker channel, Content is the
// JSON encoded payload of the event.
type PublisherEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func RaceStartedEvent(raceId, song string, playerIds []string, musicStartTime int64) (string, error) {
	type RaceStartedContent struct {
		RaceId         string   `json:"raceId"`
		Song           string   `json:"song"`
		PlayerIds      []string `json:"playerIds"`
		MusicStartTime int64    `json:"musicStartTime"`
	}

	content := RaceStartedContent{
		RaceId:         raceId,
		Song:           song,
		PlayerIds:      playerIds,
		MusicStartTime: musicStartTime,
	}

	return encode("RaceStarted", content)
}

func RaceOverEvent(record RaceRecord) (string, error) {
	type Standing struct {
		PlayerId  string   `json:"playerId"`
		Username  string   `json:"username"`
		Lap       int      `json:"lap"`
		BestLap   *float64 `json:"bestLap"`
		TotalTime *float64 `json:"totalTime"`
		Finished  bool     `json:"finished"`
	}

	type RaceOverContent struct {
		RaceId     string     `json:"raceId"`
		Song       string     `json:"song"`
		FinishedAt int64      `json:"finishedAt"`
		Standings  []Standing `json:"standings"`
	}

	content := RaceOverContent{
		RaceId:     record.Id,
		Song:       record.Song,
		FinishedAt: record.FinishedAt,
		Standings:  make([]Standing, 0, len(record.Results)),
	}

	for _, result := range record.Results {
		content.Standings = append(content.Standings, Standing{
			PlayerId:  result.Id,
			Username:  result.Username,
			Lap:       result.Lap,
			BestLap:   result.BestLap,
			TotalTime: result.TotalTime,
			Finished:  result.Finished,
		})
	}

	return encode("RaceOver", content)
}

func encode(eventType string, content any) (string, error) {
	message, err := json.Marshal(content)
	if err != nil {
		return "", err
	}

	event := PublisherEvent{
		Type:    eventType,
		Content: string(message),
	}

	e, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	return string(e), nil
}
