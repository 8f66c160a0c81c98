package sim

import (
	"fmt"

	"github.com/sarchlab/cachesim/cache"
)

// Statistics holds cache outcome counters for one run. Counters only grow.
type Statistics struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Record counts one access outcome. An eviction is also a miss.
func (s *Statistics) Record(outcome cache.Outcome) {
	switch outcome {
	case cache.Hit:
		s.Hits++
	case cache.Miss:
		s.Misses++
	case cache.MissEviction:
		s.Misses++
		s.Evictions++
	}
}

// Snapshot returns a copy of the counters.
func (s *Statistics) Snapshot() Statistics {
	return *s
}

// Accesses returns the number of cache accesses counted.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits / accesses, or 0 when nothing was accessed.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// String formats the counters as the summary line.
func (s Statistics) String() string {
	return fmt.Sprintf("hits:%d misses:%d evictions:%d", s.Hits, s.Misses, s.Evictions)
}
