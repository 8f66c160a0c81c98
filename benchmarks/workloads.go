package benchmarks

import (
	"fmt"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/trace"
)

// Base addresses keep the workloads' arrays apart.
const (
	arrayBase  uint64 = 0x10000000
	matrixBase uint64 = 0x20000000
	elemSize   uint64 = 8
)

// GetWorkloads returns the standard set of workloads, sized relative to g
// so that each one shows its intended behavior.
func GetWorkloads(g cache.Geometry) []Benchmark {
	return []Benchmark{
		sequentialSweep(g),
		stridedWalk(g),
		conflictThrash(g),
		modifyHeavy(g),
		matrixTranspose(g),
	}
}

// GetCoreWorkloads returns a minimal set for quick validation.
func GetCoreWorkloads(g cache.Geometry) []Benchmark {
	return []Benchmark{
		sequentialSweep(g),
		conflictThrash(g),
	}
}

// capacityElems is the number of 8-byte elements that fit in the cache,
// clamped so generated traces stay small.
func capacityElems(g cache.Geometry) uint64 {
	capacity, ok := g.Capacity()
	if !ok || capacity > 1<<20 {
		capacity = 1 << 20
	}

	n := capacity / elemSize
	if n == 0 {
		n = 1
	}

	return n
}

// 1. Sequential Sweep - Spatial locality, one miss per block
func sequentialSweep(g cache.Geometry) Benchmark {
	n := capacityElems(g)

	return Benchmark{
		Name:        "sequential_sweep",
		Description: fmt.Sprintf("%d sequential 8B loads over one cache-sized array, twice", n),
		Records: append(
			SequentialSweep(trace.OpLoad, arrayBase, n, elemSize),
			SequentialSweep(trace.OpLoad, arrayBase, n, elemSize)...),
	}
}

// 2. Strided Walk - One access per block, footprint twice the cache
func stridedWalk(g cache.Geometry) Benchmark {
	stride := g.BlockSize()
	n := 2 * capacityElems(g) * elemSize / stride
	if n == 0 {
		n = 2
	}

	return Benchmark{
		Name:        "strided_walk",
		Description: fmt.Sprintf("%d loads with a %dB stride over twice the capacity", n, stride),
		Records:     StridedWalk(trace.OpLoad, arrayBase, n, stride),
	}
}

// 3. Conflict Thrash - E+1 blocks cycling through one set
func conflictThrash(g cache.Geometry) Benchmark {
	const rounds = 64

	return Benchmark{
		Name:        "conflict_thrash",
		Description: fmt.Sprintf("%d blocks mapped to set 0, cycled %d times", g.Lines+1, rounds),
		Records:     ConflictThrash(g, 0, uint64(g.Lines)+1, rounds),
	}
}

// 4. Modify Heavy - Read-modify-write over an array
func modifyHeavy(g cache.Geometry) Benchmark {
	n := capacityElems(g)

	return Benchmark{
		Name:        "modify_heavy",
		Description: fmt.Sprintf("%d sequential 8B modifies", n),
		Records:     SequentialSweep(trace.OpModify, arrayBase, n, elemSize),
	}
}

// 5. Matrix Transpose - Row-major reads, column-major writes
func matrixTranspose(g cache.Geometry) Benchmark {
	footprint := capacityElems(g) * elemSize
	n := uint64(8)
	for 2*n*n*elemSize < footprint && n < 256 {
		n *= 2
	}

	return Benchmark{
		Name:        "matrix_transpose",
		Description: fmt.Sprintf("B = transpose(A) for %dx%d matrices of 8B elements", n, n),
		Records:     MatrixTranspose(matrixBase, n, elemSize),
	}
}

// SequentialSweep emits count accesses of op at base, base+elem, ...
func SequentialSweep(op trace.Op, base, count, elem uint64) []trace.Record {
	return StridedWalk(op, base, count, elem)
}

// StridedWalk emits count accesses of op at base, base+stride, ...
func StridedWalk(op trace.Op, base, count, stride uint64) []trace.Record {
	records := make([]trace.Record, 0, count)
	for i := uint64(0); i < count; i++ {
		records = append(records, trace.Record{
			Op:      op,
			Address: base + i*stride,
			Size:    elemSize,
		})
	}

	return records
}

// ConflictThrash emits loads of blocks distinct tags that all map to set,
// cycling through them rounds times. With blocks > E under LRU every
// access misses.
func ConflictThrash(g cache.Geometry, set, blocks uint64, rounds int) []trace.Record {
	decoder, err := cache.NewDecoder(g)
	if err != nil {
		return nil
	}

	records := make([]trace.Record, 0, int(blocks)*rounds)
	for r := 0; r < rounds; r++ {
		for tag := uint64(0); tag < blocks; tag++ {
			records = append(records, trace.Record{
				Op:      trace.OpLoad,
				Address: decoder.Reassemble(tag, set),
				Size:    1,
			})
		}
	}

	return records
}

// MatrixTranspose emits the accesses of B[j][i] = A[i][j] for n x n
// row-major matrices: a load from A then a store to B. B follows A
// directly in memory.
func MatrixTranspose(base, n, elem uint64) []trace.Record {
	a := base
	b := base + n*n*elem

	records := make([]trace.Record, 0, 2*n*n)
	for i := uint64(0); i < n; i++ {
		for j := uint64(0); j < n; j++ {
			records = append(records,
				trace.Record{Op: trace.OpLoad, Address: a + (i*n+j)*elem, Size: elem},
				trace.Record{Op: trace.OpStore, Address: b + (j*n+i)*elem, Size: elem},
			)
		}
	}

	return records
}
