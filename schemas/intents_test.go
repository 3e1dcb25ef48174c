package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Intent
	}{
		{
			name: "join lobby",
			raw:  `{"type":"join_lobby","username":"neo","model":"Volvo XC60.glb"}`,
			want: JoinLobby{Username: "neo", Model: "Volvo XC60.glb"},
		},
		{
			name: "vote",
			raw:  `{"type":"vote_song","song":"Children.mp3"}`,
			want: VoteSong{Song: "Children.mp3"},
		},
		{
			name: "ready",
			raw:  `{"type":"player_ready","isReady":true}`,
			want: PlayerReady{IsReady: true},
		},
		{
			name: "assets ready without payload",
			raw:  `{"type":"assets_ready"}`,
			want: AssetsReady{},
		},
		{
			name: "transform",
			raw:  `{"type":"update","x":1,"y":2,"z":3,"qx":0,"qy":0.5,"qz":0,"qw":0.5,"velocity":42}`,
			want: TransformUpdate{X: 1, Y: 2, Z: 3, Qy: 0.5, Qw: 0.5, Velocity: 42},
		},
		{
			name: "lap without times",
			raw:  `{"type":"lap_update","lap":2}`,
			want: LapReport{Lap: 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent, err := DecodeIntent([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, intent)
		})
	}
}

func TestDecodeLapReportTimes(t *testing.T) {
	intent, err := DecodeIntent([]byte(`{"type":"lap_update","lap":1,"lapTime":31.25,"totalTime":31.25}`))
	require.NoError(t, err)

	report, ok := intent.(LapReport)
	require.True(t, ok)
	assert.Equal(t, 1, report.Lap)
	require.NotNil(t, report.LapTime)
	assert.Equal(t, 31.25, *report.LapTime)
	require.NotNil(t, report.TotalTime)
}

func TestDecodeIntentErrors(t *testing.T) {
	_, err := DecodeIntent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeIntent([]byte(`{"type":"lap_update","lap":"three"}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeIntent([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DecodeIntent([]byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}
