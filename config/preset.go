package config

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/sarchlab/cachesim/cache"
)

// Preset describes a well-known cache by its size, associativity and line
// size.
type Preset struct {
	Description string
	// Size in bytes
	Size uint64
	// Associativity (number of ways)
	Associativity uint
	// BlockSize in bytes (cache line size)
	BlockSize uint64
}

var presets = map[string]Preset{
	// Apple M2 performance core: 192KB, 6-way, 64B lines.
	"m2-l1i": {
		Description:   "Apple M2 L1 instruction cache (192KB, 6-way, 64B)",
		Size:          192 * 1024,
		Associativity: 6,
		BlockSize:     64,
	},
	// Apple M2 performance core: 128KB, 8-way, 64B lines.
	"m2-l1d": {
		Description:   "Apple M2 L1 data cache (128KB, 8-way, 64B)",
		Size:          128 * 1024,
		Associativity: 8,
		BlockSize:     64,
	},
	// The shared 24MB L2 has 12288 sets, which no power-of-two geometry
	// can express, so only the per-core slice is offered.
	"m2-l2-per-core": {
		Description:   "Per-core L2 slice (512KB, 8-way, 128B)",
		Size:          512 * 1024,
		Associativity: 8,
		BlockSize:     128,
	},
	"example-direct": {
		Description:   "Direct-mapped teaching example (s=4 E=1 b=4)",
		Size:          256,
		Associativity: 1,
		BlockSize:     16,
	},
	"example-2way": {
		Description:   "Two-way teaching example (s=8 E=2 b=4)",
		Size:          8192,
		Associativity: 2,
		BlockSize:     16,
	},
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetGeometry returns the geometry of the named preset.
func PresetGeometry(name string) (cache.Geometry, error) {
	p, ok := presets[name]
	if !ok {
		return cache.Geometry{}, fmt.Errorf("unknown preset %q (known: %v)", name, PresetNames())
	}

	return p.Geometry()
}

// Geometry converts the preset to set and block bits.
func (p Preset) Geometry() (cache.Geometry, error) {
	return GeometryFromSize(p.Size, p.Associativity, p.BlockSize)
}

// GeometryFromSize derives a geometry from a capacity, associativity and
// block size. The block size and the resulting set count must be powers
// of two.
func GeometryFromSize(size uint64, associativity uint, blockSize uint64) (cache.Geometry, error) {
	if associativity == 0 || blockSize == 0 {
		return cache.Geometry{}, fmt.Errorf("%w: associativity and block size must be > 0",
			cache.ErrInvalidGeometry)
	}

	if !isPowerOfTwo(blockSize) {
		return cache.Geometry{}, fmt.Errorf("%w: block size %d is not a power of two",
			cache.ErrInvalidGeometry, blockSize)
	}

	wayBytes := uint64(associativity) * blockSize
	if size == 0 || size%wayBytes != 0 {
		return cache.Geometry{}, fmt.Errorf("%w: size %d is not a multiple of %d ways x %dB",
			cache.ErrInvalidGeometry, size, associativity, blockSize)
	}

	sets := size / wayBytes
	if !isPowerOfTwo(sets) {
		return cache.Geometry{}, fmt.Errorf("%w: %d sets is not a power of two",
			cache.ErrInvalidGeometry, sets)
	}

	return cache.NewGeometry(
		uint(bits.TrailingZeros64(sets)),
		associativity,
		uint(bits.TrailingZeros64(blockSize)),
	)
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}
