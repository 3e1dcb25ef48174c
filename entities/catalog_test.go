package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewCatalog([]string{"a.mp3", "a.mp3"})
	assert.ErrorIs(t, err, ErrDuplicateSong)

	_, err = NewCatalog([]string{"a.mp3", ""})
	assert.ErrorIs(t, err, ErrBlankSong)
}

func TestWinner(t *testing.T) {
	catalog, err := NewCatalog([]string{"SongB", "SongA", "SongC"})
	require.NoError(t, err)

	cases := []struct {
		name  string
		votes []string
		want  string
	}{
		{name: "no votes falls back to first song", votes: nil, want: "SongB"},
		{name: "tie goes to catalog order", votes: []string{"SongA", "SongA", "SongB", "SongB", "SongC"}, want: "SongB"},
		{name: "strict majority wins", votes: []string{"SongC", "SongC", "SongA"}, want: "SongC"},
		{name: "unknown votes are ignored", votes: []string{"Nope", "Nope", "SongA"}, want: "SongA"},
		{name: "only unknown votes", votes: []string{"Nope"}, want: "SongB"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, catalog.Winner(tc.votes))
		})
	}
}

func TestTallyListsEverySong(t *testing.T) {
	catalog, err := NewCatalog([]string{"SongB", "SongA", "SongC"})
	require.NoError(t, err)

	counts := catalog.Tally([]string{"SongA", "SongA", "Other"})

	assert.Equal(t, map[string]int{"SongB": 0, "SongA": 2, "SongC": 0}, counts)
}

func TestSongsReturnsCopy(t *testing.T) {
	catalog, err := NewCatalog([]string{"a", "b"})
	require.NoError(t, err)

	songs := catalog.Songs()
	songs[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, catalog.Songs())
	assert.True(t, catalog.Contains("a"))
	assert.False(t, catalog.Contains("changed"))
}
