package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// maxReferenceBlockBits keeps the block size representable as an int.
const maxReferenceBlockBits = 62

// MaxReferenceLines bounds the reference model. Akita allocates a full
// Block per line plus a pointer in its set's LRU queue, several times the
// cost of a Cache line.
const MaxReferenceLines = 1 << 20

// Reference is an independent LRU model backed by the Akita cache
// directory. It tracks block-aligned addresses and is used to cross-check
// Cache.
type Reference struct {
	geometry  Geometry
	decoder   *Decoder
	directory *akitacache.DirectoryImpl
}

// NewReference creates a reference model with the given geometry.
func NewReference(g Geometry) (*Reference, error) {
	decoder, err := NewDecoder(g)
	if err != nil {
		return nil, err
	}

	lines, ok := g.totalLines()
	if !ok || lines > MaxReferenceLines || g.BlockBits > maxReferenceBlockBits {
		return nil, fmt.Errorf("%w: %s is outside the reference model's range",
			ErrGeometryTooLarge, g)
	}

	return &Reference{
		geometry: g,
		decoder:  decoder,
		directory: akitacache.NewDirectory(
			int(g.NumSets()),
			int(g.Lines),
			int(g.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Geometry returns the reference model geometry.
func (r *Reference) Geometry() Geometry {
	return r.geometry
}

// Access classifies an access to addr and updates the directory.
func (r *Reference) Access(addr uint64) Outcome {
	blockAddr := r.decoder.BlockAddress(addr)

	block := r.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		r.directory.Visit(block)
		return Hit
	}

	victim := r.directory.FindVictim(blockAddr)
	outcome := Miss
	if victim.IsValid {
		outcome = MissEviction
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	r.directory.Visit(victim)

	return outcome
}

// Reset invalidates every block.
func (r *Reference) Reset() {
	r.directory.Reset()
}
