package services

import (
	"fmt"
	"testing"

	"github.com/amirrezam75/racerelay/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultServiceFindAndRecent(t *testing.T) {
	resultService, err := NewResultService(2)
	require.NoError(t, err)

	resultService.Add(schemas.RaceRecord{Id: "r1", FinishedAt: 100})
	resultService.Add(schemas.RaceRecord{Id: "r2", FinishedAt: 300})
	resultService.Add(schemas.RaceRecord{Id: ""})

	record, ok := resultService.Find("r1")
	require.True(t, ok)
	assert.Equal(t, int64(100), record.FinishedAt)

	_, ok = resultService.Find("missing")
	assert.False(t, ok)

	recent := resultService.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].Id)
	assert.Equal(t, "r1", recent[1].Id)
}

func TestResultServiceEvictsBeyondSize(t *testing.T) {
	resultService, err := NewResultService(3)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		resultService.Add(schemas.RaceRecord{Id: fmt.Sprintf("r%d", i), FinishedAt: int64(i)})
	}

	assert.Len(t, resultService.Recent(), 3)

	_, ok := resultService.Find("r5")
	assert.True(t, ok)
	_, ok = resultService.Find("r1")
	assert.False(t, ok)
}
