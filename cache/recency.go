package cache

const none = -1

// recencyArena orders the resident ways of every set from least to most
// recently used. All sets share flat prev/next arenas; set s owns entries
// [s*ways, (s+1)*ways). Links are way indices within the set, so the
// arena never points into the line array itself.
type recencyArena struct {
	ways   int
	prev   []int32
	next   []int32
	queued []bool
	head   []int32 // least recently used way per set
	tail   []int32 // most recently used way per set
	size   []int32
}

func newRecencyArena(sets, ways int) *recencyArena {
	a := &recencyArena{
		ways:   ways,
		prev:   make([]int32, sets*ways),
		next:   make([]int32, sets*ways),
		queued: make([]bool, sets*ways),
		head:   make([]int32, sets),
		tail:   make([]int32, sets),
		size:   make([]int32, sets),
	}
	a.clear()

	return a
}

func (a *recencyArena) clear() {
	for s := range a.head {
		a.clearSet(s)
	}
}

func (a *recencyArena) clearSet(set int) {
	base := set * a.ways
	for i := base; i < base+a.ways; i++ {
		a.prev[i] = none
		a.next[i] = none
		a.queued[i] = false
	}

	a.head[set] = none
	a.tail[set] = none
	a.size[set] = 0
}

// touch makes way the most recently used entry of set, inserting it if
// needed.
func (a *recencyArena) touch(set, way int) {
	i := set*a.ways + way
	if a.queued[i] {
		if int(a.tail[set]) == way {
			return
		}

		a.unlink(set, way)
	}

	tail := a.tail[set]
	a.prev[i] = tail
	a.next[i] = none

	if tail != none {
		a.next[set*a.ways+int(tail)] = int32(way)
	} else {
		a.head[set] = int32(way)
	}

	a.tail[set] = int32(way)
	a.queued[i] = true
	a.size[set]++
}

// remove drops way from the set's queue if present.
func (a *recencyArena) remove(set, way int) {
	if a.queued[set*a.ways+way] {
		a.unlink(set, way)
	}
}

func (a *recencyArena) unlink(set, way int) {
	base := set * a.ways
	i := base + way
	p, n := a.prev[i], a.next[i]

	if p != none {
		a.next[base+int(p)] = n
	} else {
		a.head[set] = n
	}

	if n != none {
		a.prev[base+int(n)] = p
	} else {
		a.tail[set] = p
	}

	a.prev[i] = none
	a.next[i] = none
	a.queued[i] = false
	a.size[set]--
}

// lru returns the least recently used way of set, or none if it is empty.
func (a *recencyArena) lru(set int) int {
	return int(a.head[set])
}

func (a *recencyArena) contains(set, way int) bool {
	return a.queued[set*a.ways+way]
}

func (a *recencyArena) len(set int) int {
	return int(a.size[set])
}

// order lists the queued ways of set from least to most recently used. It
// stops after ways steps so a corrupted chain cannot loop forever.
func (a *recencyArena) order(set int) []int {
	base := set * a.ways
	ways := make([]int, 0, a.size[set])
	for w, steps := a.head[set], 0; w != none && steps < a.ways; w, steps = a.next[base+int(w)], steps+1 {
		ways = append(ways, int(w))
	}

	return ways
}
