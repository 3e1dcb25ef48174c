package services

import (
	"sort"

	"github.com/amirrezam75/racerelay/schemas"
	lru "github.com/hashicorp/golang-lru"
)

// ResultService keeps the most recent finished races in memory.
type ResultService struct {
	cache *lru.ARCCache
}

func NewResultService(size int) (*ResultService, error) {
	if size <= 0 {
		size = 64
	}

	cache, err := lru.NewARC(size)

	if err != nil {
		return nil, err
	}

	return &ResultService{cache: cache}, nil
}

func (resultService *ResultService) Add(record schemas.RaceRecord) {
	if record.Id == "" {
		return
	}
	resultService.cache.Add(record.Id, record)
}

func (resultService *ResultService) Find(id string) (schemas.RaceRecord, bool) {
	value, ok := resultService.cache.Get(id)

	if !ok {
		return schemas.RaceRecord{}, false
	}

	return value.(schemas.RaceRecord), true
}

// Recent lists the kept races, newest first.
func (resultService *ResultService) Recent() []schemas.RaceRecord {
	keys := resultService.cache.Keys()
	records := make([]schemas.RaceRecord, 0, len(keys))

	for _, key := range keys {
		// Peek so listing does not promote entries.
		if value, ok := resultService.cache.Peek(key); ok {
			records = append(records, value.(schemas.RaceRecord))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FinishedAt > records[j].FinishedAt
	})

	return records
}
