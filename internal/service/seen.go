package service

import (
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SeenFilter remembers which listing versions (uuid at a given
// last_updated) this process has already written. A false positive skips
// one write of an unchanged-looking listing until the filter is reset.
type SeenFilter struct {
	mu       sync.Mutex
	capacity uint
	filter   *bloom.BloomFilter
	added    uint
}

func NewSeenFilter(capacity uint, fpRate float64) *SeenFilter {
	if capacity == 0 {
		capacity = 1_000_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	return &SeenFilter{
		capacity: capacity,
		filter:   bloom.NewWithEstimates(capacity, fpRate),
	}
}

func seenKey(uuid string, lastUpdated int64) []byte {
	b := make([]byte, 0, len(uuid)+21)
	b = append(b, uuid...)
	b = append(b, '@')
	return strconv.AppendInt(b, lastUpdated, 10)
}

func (f *SeenFilter) Contains(uuid string, lastUpdated int64) bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.Test(seenKey(uuid, lastUpdated))
}

// Add records a version. The filter starts over once it holds capacity
// entries so the false-positive rate stays bounded.
func (f *SeenFilter) Add(uuid string, lastUpdated int64) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.added >= f.capacity {
		f.filter.ClearAll()
		f.added = 0
	}
	f.filter.Add(seenKey(uuid, lastUpdated))
	f.added++
}

func (f *SeenFilter) Len() uint {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.added
}
