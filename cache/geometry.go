// Package cache provides a set-associative cache model with true LRU
// replacement.
package cache

import (
	"errors"
	"fmt"
)

// AddressWidth is the number of bits in a memory address.
const AddressWidth = 64

// Storage cost of a Cache: each line holds a 16-byte Line, two int32
// recency links and a queued flag; each set holds an int32 head, tail and
// size.
const (
	BytesPerLine = 16 + 4 + 4 + 1
	BytesPerSet  = 4 + 4 + 4
)

// MaxLines is the largest number of lines (sets * ways) a Cache will
// allocate.
const MaxLines = 1 << 24

// MaxFootprint bounds the storage of any cache New accepts. It is reached
// by a direct-mapped cache with MaxLines sets.
const MaxFootprint = MaxLines * (BytesPerLine + BytesPerSet)

var (
	// ErrInvalidGeometry is returned when a geometry cannot describe a
	// cache over 64-bit addresses.
	ErrInvalidGeometry = errors.New("invalid cache geometry")

	// ErrGeometryTooLarge is returned when a valid geometry needs more
	// lines than the model can hold in memory.
	ErrGeometryTooLarge = errors.New("cache geometry too large to simulate")
)

// Geometry describes the shape of a cache.
type Geometry struct {
	// SetBits is the number of set-index bits (S). There are 2^S sets.
	SetBits uint
	// Lines is the number of lines per set (E), i.e. the associativity.
	Lines uint
	// BlockBits is the number of block-offset bits (b). Blocks are 2^b
	// bytes.
	BlockBits uint
}

// NewGeometry validates and returns a geometry.
func NewGeometry(setBits, lines, blockBits uint) (Geometry, error) {
	g := Geometry{SetBits: setBits, Lines: lines, BlockBits: blockBits}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}

	return g, nil
}

// Validate checks that the geometry partitions a 64-bit address.
func (g Geometry) Validate() error {
	if g.Lines == 0 {
		return fmt.Errorf("%w: lines per set must be >= 1", ErrInvalidGeometry)
	}

	if g.SetBits > AddressWidth || g.BlockBits > AddressWidth ||
		g.SetBits+g.BlockBits > AddressWidth {
		return fmt.Errorf("%w: set bits (%d) + block bits (%d) exceed %d-bit address",
			ErrInvalidGeometry, g.SetBits, g.BlockBits, AddressWidth)
	}

	return nil
}

// TagBits returns the number of address bits left for the tag.
func (g Geometry) TagBits() uint {
	return AddressWidth - g.SetBits - g.BlockBits
}

// NumSets returns 2^S. It saturates at the maximum uint64 for S = 64.
func (g Geometry) NumSets() uint64 {
	return pow2(g.SetBits)
}

// BlockSize returns the block size in bytes. It saturates for b = 64.
func (g Geometry) BlockSize() uint64 {
	return pow2(g.BlockBits)
}

// Capacity returns the data capacity in bytes, or false if it does not
// fit in 64 bits.
func (g Geometry) Capacity() (uint64, bool) {
	if g.SetBits+g.BlockBits >= AddressWidth {
		return 0, false
	}

	perWay := uint64(1) << (g.SetBits + g.BlockBits)
	if uint64(g.Lines) > ^uint64(0)/perWay {
		return 0, false
	}

	return perWay * uint64(g.Lines), true
}

// String formats the geometry the way the command line takes it.
func (g Geometry) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d", g.SetBits, g.Lines, g.BlockBits)
}

// Footprint returns the bytes a Cache of this geometry allocates for lines
// and recency state, or false if it exceeds MaxLines.
func (g Geometry) Footprint() (uint64, bool) {
	lines, ok := g.totalLines()
	if !ok {
		return 0, false
	}

	return lines*BytesPerLine + g.NumSets()*BytesPerSet, true
}

func (g Geometry) totalLines() (uint64, bool) {
	if g.SetBits >= AddressWidth {
		return 0, false
	}

	sets := uint64(1) << g.SetBits
	if uint64(g.Lines) > MaxLines/sets {
		return 0, false
	}

	return sets * uint64(g.Lines), true
}

func pow2(bits uint) uint64 {
	if bits >= AddressWidth {
		return ^uint64(0)
	}

	return uint64(1) << bits
}
