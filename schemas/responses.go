package schemas

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type SongsResponse struct {
	Songs   []string `json:"songs"`
	MaxLaps int      `json:"maxLaps"`
}

type RacesResponse struct {
	Races []RaceRecord `json:"races"`
}
