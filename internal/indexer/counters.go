package indexer

// Counters holds the running totals threaded through a traversal: one
// counter per tree depth, grown lazily as deeper levels are first visited,
// plus the running total of countable leaves.
//
// Counters is a value. The indexer clones it on entry to every recursive
// call and hands the updated copy back, so a caller's Counters is never
// changed behind its back.
type Counters struct {
	depths []int
	leaves int
}

// NewCounters returns all-zero counters for a fresh corpus.
func NewCounters() Counters {
	return Counters{}
}

// Len is the number of depths extended so far.
func (c Counters) Len() int {
	return len(c.depths)
}

// At returns the counter at depth, or 0 if that depth was never visited.
func (c Counters) At(depth int) int {
	if depth < 0 || depth >= len(c.depths) {
		return 0
	}
	return c.depths[depth]
}

// Last returns the deepest extended counter, or 0 when none exist.
func (c Counters) Last() int {
	if len(c.depths) == 0 {
		return 0
	}
	return c.depths[len(c.depths)-1]
}

// Leaves is the number of countable leaves seen so far.
func (c Counters) Leaves() int {
	return c.leaves
}

// Snapshot copies the per-depth counters.
func (c Counters) Snapshot() []int {
	return append([]int(nil), c.depths...)
}

func (c Counters) clone() Counters {
	return Counters{depths: c.Snapshot(), leaves: c.leaves}
}

// extend appends fresh zeros until depth is addressable.
func (c *Counters) extend(depth int) {
	for len(c.depths) < depth+1 {
		c.depths = append(c.depths, 0)
	}
}

// next increments the counter at depth and returns the new value.
func (c *Counters) next(depth int) int {
	c.extend(depth)
	c.depths[depth]++
	return c.depths[depth]
}
