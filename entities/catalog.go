package entities

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCatalog  = errors.New("song catalog is empty")
	ErrDuplicateSong = errors.New("song listed twice in catalog")
	ErrBlankSong     = errors.New("song name is blank")
)

// Catalog is the ordered list of selectable songs. Order matters: it breaks
// vote ties and its first entry is the fallback when nobody voted.
type Catalog struct {
	songs []string
	index map[string]int
}

func NewCatalog(songs []string) (Catalog, error) {
	if len(songs) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	catalog := Catalog{
		songs: make([]string, 0, len(songs)),
		index: make(map[string]int, len(songs)),
	}

	for _, song := range songs {
		if song == "" {
			return Catalog{}, fmt.Errorf("song at position %d: %w", len(catalog.songs), ErrBlankSong)
		}
		if _, exists := catalog.index[song]; exists {
			return Catalog{}, fmt.Errorf("%q: %w", song, ErrDuplicateSong)
		}
		catalog.index[song] = len(catalog.songs)
		catalog.songs = append(catalog.songs, song)
	}

	return catalog, nil
}

func (catalog Catalog) Songs() []string {
	songs := make([]string, len(catalog.songs))
	copy(songs, catalog.songs)
	return songs
}

func (catalog Catalog) Contains(song string) bool {
	_, ok := catalog.index[song]
	return ok
}

func (catalog Catalog) Default() string {
	if len(catalog.songs) == 0 {
		return ""
	}
	return catalog.songs[0]
}

// Tally counts votes per catalog song. Every song is present, unknown votes
// are not counted.
func (catalog Catalog) Tally(votes []string) map[string]int {
	counts := make(map[string]int, len(catalog.songs))

	for _, song := range catalog.songs {
		counts[song] = 0
	}

	for _, vote := range votes {
		if _, ok := catalog.index[vote]; ok {
			counts[vote]++
		}
	}

	return counts
}

// Winner resolves votes to a song: strictly highest count, first in catalog
// order on ties, the first song when there are no votes.
func (catalog Catalog) Winner(votes []string) string {
	counts := catalog.Tally(votes)

	winner, best := catalog.Default(), 0

	for _, song := range catalog.songs {
		if counts[song] > best {
			winner, best = song, counts[song]
		}
	}

	return winner
}
