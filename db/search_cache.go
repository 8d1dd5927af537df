package db

import (
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto"
)

// SearchCache keeps Search results per folded term. Keys carry the store
// generation they were computed for, so a mutation makes every older entry
// unreachable; those age out under MaxCost.
type SearchCache struct {
	cache *ristretto.Cache
}

func NewSearchCache() (*SearchCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}

	return &SearchCache{cache: cache}, nil
}

func searchKey(generation uint64, term string) string {
	return strconv.FormatUint(generation, 10) + "::" + term
}

func (c *SearchCache) get(generation uint64, term string) ([]Pessoa, bool) {
	cached, found := c.cache.Get(searchKey(generation, term))
	if !found {
		return nil, false
	}
	return clonePessoas(cached.([]Pessoa)), true
}

func (c *SearchCache) set(generation uint64, term string, pessoas []Pessoa) {
	c.cache.Set(searchKey(generation, term), clonePessoas(pessoas), 1)
	c.cache.Wait()
}

// Hits reports how many searches were answered from the cache.
func (c *SearchCache) Hits() uint64 {
	return c.cache.Metrics.Hits()
}

func (c *SearchCache) Close() {
	c.cache.Close()
}
