// Package loot implements the weighted random table shared by dungeon
// loot rolls and monster skill selection.
package loot

// RNG is the randomness source consumed by Pick. *math/rand.Rand
// satisfies it; tests substitute a fixed sequence.
type RNG interface {
	Float64() float64
}

type entry[T any] struct {
	item   T
	weight float64
}

// Table is an ordered weighted random table. Entries keep insertion
// order so draws are reproducible under a deterministic RNG.
type Table[T any] struct {
	entries []entry[T]
	total   float64
}

// Add appends a candidate with the given weight. Entries with
// non-positive weight are ignored.
func (t *Table[T]) Add(item T, weight float64) {
	if weight <= 0 {
		return
	}
	t.entries = append(t.entries, entry[T]{item: item, weight: weight})
	t.total += weight
}

// Len returns the number of candidates.
func (t *Table[T]) Len() int { return len(t.entries) }

// Pick draws one candidate: r uniform in [0, total), walking entries in
// insertion order and selecting the first whose running weight sum
// reaches r. Returns false if the table is empty.
func (t *Table[T]) Pick(rng RNG) (T, bool) {
	var zero T
	if len(t.entries) == 0 {
		return zero, false
	}
	r := rng.Float64() * t.total
	sum := 0.0
	for _, e := range t.entries {
		sum += e.weight
		if r <= sum {
			return e.item, true
		}
	}
	// Floating point drift can leave r a hair above the final sum.
	return t.entries[len(t.entries)-1].item, true
}

// PickN draws n independent candidates (duplicates allowed).
func (t *Table[T]) PickN(n int, rng RNG) []T {
	var out []T
	for i := 0; i < n; i++ {
		if item, ok := t.Pick(rng); ok {
			out = append(out, item)
		}
	}
	return out
}
