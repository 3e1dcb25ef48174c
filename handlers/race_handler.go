package handlers

import (
	"context"
	"net/http"

	"github.com/amirrezam75/racerelay/pkg/logx"
	"github.com/amirrezam75/racerelay/schemas"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type StateReader interface {
	Snapshot(ctx context.Context) (schemas.StateView, error)
}

type RaceFinder interface {
	Find(id string) (schemas.RaceRecord, bool)
	Recent() []schemas.RaceRecord
}

type RaceHandler struct {
	stateReader StateReader
	raceFinder  RaceFinder
	songs       schemas.SongsResponse
}

func NewRaceHandler(
	router chi.Router,
	stateReader StateReader,
	raceFinder RaceFinder,
	songs []string,
	maxLaps int,
) {
	raceHandler := RaceHandler{
		stateReader: stateReader,
		raceFinder:  raceFinder,
		songs:       schemas.SongsResponse{Songs: songs, MaxLaps: maxLaps},
	}

	router.Get("/healthz", raceHandler.health)
	router.Get("/songs", raceHandler.catalog)
	router.Get("/state", raceHandler.state)
	router.Get("/races", raceHandler.races)
	router.Get("/races/{id}", raceHandler.race)
}

func (raceHandler RaceHandler) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, schemas.HealthResponse{Status: "ok"})
}

func (raceHandler RaceHandler) catalog(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, raceHandler.songs)
}

func (raceHandler RaceHandler) state(w http.ResponseWriter, r *http.Request) {
	view, err := raceHandler.stateReader.Snapshot(r.Context())

	if err != nil {
		logx.Logger.Error(err.Error(), zap.String("desc", "could not read race state"))
		respond(w, http.StatusServiceUnavailable, schemas.ErrorResponse{Message: "Race state is unavailable."})
		return
	}

	respond(w, http.StatusOK, view)
}

func (raceHandler RaceHandler) races(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, schemas.RacesResponse{Races: raceHandler.raceFinder.Recent()})
}

func (raceHandler RaceHandler) race(w http.ResponseWriter, r *http.Request) {
	record, ok := raceHandler.raceFinder.Find(chi.URLParam(r, "id"))

	if !ok {
		respond(w, http.StatusNotFound, schemas.ErrorResponse{Message: "Race not found."})
		return
	}

	respond(w, http.StatusOK, record)
}
