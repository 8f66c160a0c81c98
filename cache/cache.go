package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant marks an internal consistency failure. It is a defect,
	// not a recoverable condition.
	ErrInvariant = errors.New("cache invariant violated")

	// ErrSetIndexOutOfRange is returned for a set index >= 2^S.
	ErrSetIndexOutOfRange = errors.New("set index out of range")
)

// Outcome classifies a single cache access.
type Outcome uint8

// Access outcomes.
const (
	Hit Outcome = iota
	Miss
	MissEviction
)

// String returns the words the verbose trace uses for the outcome.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissEviction:
		return "miss eviction"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// IsMiss reports whether the outcome counts as a miss.
func (o Outcome) IsMiss() bool {
	return o == Miss || o == MissEviction
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Outcome is the hit/miss classification.
	Outcome Outcome
	// Way is the line within the set that now holds the tag.
	Way int
	// EvictedTag is the tag that was replaced (valid only on MissEviction).
	EvictedTag uint64
}

// Line is one storage slot of a set.
type Line struct {
	Tag   uint64
	Valid bool
}

// Cache is a set-associative cache with LRU replacement. It tracks tags
// only; no data is stored. Lines of all sets live in one flat slice; set s
// owns lines[s*E : (s+1)*E].
type Cache struct {
	geometry Geometry
	decoder  *Decoder
	numSets  int
	ways     int
	lines    []Line
	recency  *recencyArena
}

// New creates an empty cache with the given geometry. Geometries with more
// than MaxLines lines are refused with ErrGeometryTooLarge.
func New(g Geometry) (*Cache, error) {
	decoder, err := NewDecoder(g)
	if err != nil {
		return nil, err
	}

	total, ok := g.totalLines()
	if !ok {
		return nil, fmt.Errorf("%w: %s needs more than %d lines",
			ErrGeometryTooLarge, g, MaxLines)
	}

	numSets := int(g.NumSets())
	ways := int(g.Lines)

	return &Cache{
		geometry: g,
		decoder:  decoder,
		numSets:  numSets,
		ways:     ways,
		lines:    make([]Line, total),
		recency:  newRecencyArena(numSets, ways),
	}, nil
}

// Geometry returns the cache geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Decoder returns the address decoder matching the cache geometry.
func (c *Cache) Decoder() *Decoder {
	return c.decoder
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return c.numSets
}

// Access looks up tag in the given set, filling or replacing a line on a
// miss. Only recency changes on a hit; exactly one line changes on a miss.
func (c *Cache) Access(setIndex, tag uint64) (AccessResult, error) {
	set, err := c.set(setIndex)
	if err != nil {
		return AccessResult{}, err
	}

	lines := c.setLines(set)

	for way, line := range lines {
		if line.Valid && line.Tag == tag {
			c.recency.touch(set, way)
			return AccessResult{Outcome: Hit, Way: way}, nil
		}
	}

	for way, line := range lines {
		if !line.Valid {
			lines[way] = Line{Tag: tag, Valid: true}
			c.recency.touch(set, way)
			return AccessResult{Outcome: Miss, Way: way}, nil
		}
	}

	victim := c.recency.lru(set)
	if victim == none {
		return AccessResult{}, fmt.Errorf(
			"%w: set %d is full but its recency queue is empty",
			ErrInvariant, setIndex)
	}

	result := AccessResult{
		Outcome:    MissEviction,
		Way:        victim,
		EvictedTag: lines[victim].Tag,
	}

	lines[victim].Tag = tag
	c.recency.touch(set, victim)

	return result, nil
}

// AccessAddress decodes addr and accesses the matching set.
func (c *Cache) AccessAddress(addr uint64) (AccessResult, error) {
	a := c.decoder.Decode(addr)
	return c.Access(a.SetIndex, a.Tag)
}

// Contains reports whether a valid line in the set holds tag. It does not
// change recency.
func (c *Cache) Contains(setIndex, tag uint64) bool {
	set, err := c.set(setIndex)
	if err != nil {
		return false
	}

	for _, line := range c.setLines(set) {
		if line.Valid && line.Tag == tag {
			return true
		}
	}

	return false
}

// Lines returns a copy of the lines in a set.
func (c *Cache) Lines(setIndex uint64) ([]Line, error) {
	set, err := c.set(setIndex)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, c.ways)
	copy(lines, c.setLines(set))

	return lines, nil
}

// RecencyOrder returns the resident ways of a set from least to most
// recently used.
func (c *Cache) RecencyOrder(setIndex uint64) ([]int, error) {
	set, err := c.set(setIndex)
	if err != nil {
		return nil, err
	}

	return c.recency.order(set), nil
}

// CheckInvariants verifies that every set's recency queue holds exactly
// its valid ways, each once.
func (c *Cache) CheckInvariants() error {
	seen := make([]bool, c.ways)

	for set := 0; set < c.numSets; set++ {
		lines := c.setLines(set)

		order := c.recency.order(set)
		if len(order) != c.recency.len(set) {
			return fmt.Errorf("%w: set %d recency chain has %d entries, expected %d",
				ErrInvariant, set, len(order), c.recency.len(set))
		}

		clear(seen)
		for _, way := range order {
			if seen[way] {
				return fmt.Errorf("%w: set %d way %d queued twice",
					ErrInvariant, set, way)
			}
			seen[way] = true

			if !lines[way].Valid {
				return fmt.Errorf("%w: set %d way %d is queued but invalid",
					ErrInvariant, set, way)
			}
		}

		for way, line := range lines {
			if line.Valid && !c.recency.contains(set, way) {
				return fmt.Errorf("%w: set %d way %d is valid but not queued",
					ErrInvariant, set, way)
			}
		}
	}

	return nil
}

// Invalidate clears the line holding tag, if any.
func (c *Cache) Invalidate(setIndex, tag uint64) bool {
	set, err := c.set(setIndex)
	if err != nil {
		return false
	}

	lines := c.setLines(set)
	for way, line := range lines {
		if line.Valid && line.Tag == tag {
			lines[way] = Line{}
			c.recency.remove(set, way)
			return true
		}
	}

	return false
}

// Reset invalidates all lines.
func (c *Cache) Reset() {
	clear(c.lines)
	c.recency.clear()
}

func (c *Cache) set(setIndex uint64) (int, error) {
	if setIndex >= uint64(c.numSets) {
		return 0, fmt.Errorf("%w: %w: %d (cache has %d sets)",
			ErrInvariant, ErrSetIndexOutOfRange, setIndex, c.numSets)
	}

	return int(setIndex), nil
}

func (c *Cache) setLines(set int) []Line {
	base := set * c.ways
	return c.lines[base : base+c.ways : base+c.ways]
}
