// Package index implements the deletion-variant index used to find
// correction candidates: every dictionary term is stored under each string
// obtained by deleting up to D of its runes, so a query only needs to
// generate its own deletions and look them up.
package index

import (
	"fmt"
	"sort"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/distance"
)

// DefaultMaxDistance is the edit distance bound D used when none is given.
const DefaultMaxDistance = 2

// Options control index construction and querying.
type Options struct {
	// MaxDistance is D, the largest edit distance the index can answer.
	MaxDistance int
	// Metric verifies candidates. Deletion variants over-approximate both
	// supported metrics, so the same index serves either.
	Metric distance.Metric
	// MaxVariants caps how many query variants are generated per lookup.
	// 0 means unlimited.
	MaxVariants int
}

// Candidate is a dictionary entry within D of the query.
type Candidate struct {
	ID       int32
	Entry    dictionary.Entry
	Distance int
}

// Result of a query. Truncated is set when MaxVariants cut exploration short,
// in which case some candidates within D may be missing.
type Result struct {
	Candidates []Candidate
	Truncated  bool
}

// Index maps deletion variants to the IDs of the entries that produce them.
// It is immutable once built.
type Index struct {
	store    *dictionary.Store
	opts     Options
	postings map[string][]int32
}

// Build indexes every entry of store.
func Build(store *dictionary.Store, opts Options) *Index {
	if opts.MaxDistance < 0 {
		opts.MaxDistance = 0
	}
	idx := &Index{
		store:    store,
		opts:     opts,
		postings: make(map[string][]int32, store.Len()*4),
	}
	for id, e := range store.Entries() {
		variants, _ := Variants(e.Term, opts.MaxDistance, 0)
		for _, v := range variants {
			idx.postings[v] = append(idx.postings[v], int32(id))
		}
	}
	return idx
}

// FromPostings restores an index from snapshot data. Entry IDs are checked
// against the store.
func FromPostings(store *dictionary.Store, opts Options, postings map[string][]int32) (*Index, error) {
	n := int32(store.Len())
	for key, ids := range postings {
		for _, id := range ids {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("posting %q references entry %d of %d", key, id, n)
			}
		}
	}
	return &Index{store: store, opts: opts, postings: postings}, nil
}

// Postings exposes the variant map for serialization. Callers must not modify it.
func (idx *Index) Postings() map[string][]int32 {
	return idx.postings
}

// Keys returns the distinct variants in sorted order.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.postings))
	for k := range idx.postings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of distinct variants.
func (idx *Index) Len() int {
	return len(idx.postings)
}

// Options returns the options the index was built with.
func (idx *Index) Options() Options {
	return idx.opts
}

// Query returns every entry within maxDistance of term, deduplicated and in
// no particular order. maxDistance above the build distance is clamped to it;
// a negative value means the build distance.
func (idx *Index) Query(term string, maxDistance int) Result {
	if maxDistance < 0 || maxDistance > idx.opts.MaxDistance {
		maxDistance = idx.opts.MaxDistance
	}
	variants, truncated := Variants(term, maxDistance, idx.opts.MaxVariants)

	query := []rune(term)
	seen := make(map[int32]struct{})
	var candidates []Candidate
	for _, v := range variants {
		for _, id := range idx.postings[v] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			entry := idx.store.Entry(id)
			d := idx.opts.Metric.Bounded(query, []rune(entry.Term), maxDistance)
			if d > maxDistance {
				continue
			}
			candidates = append(candidates, Candidate{ID: id, Entry: entry, Distance: d})
		}
	}
	return Result{Candidates: candidates, Truncated: truncated}
}
