// Package dictionary holds the per-language vocabulary: normalized terms with
// their frequencies, kept in a Patricia trie for exact confirmation and
// prefix listing, plus the loaders for the on-disk source formats.
package dictionary

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/cespare/xxhash/v2"
	"github.com/tchap/go-patricia/v2/patricia"
)

var (
	// ErrEmptySource is returned when a dictionary source yields no entries.
	ErrEmptySource = errors.New("dictionary source has no entries")
	// ErrNegativeFrequency is returned for entries with a frequency below zero.
	ErrNegativeFrequency = errors.New("negative frequency")
)

// Entry is one dictionary term and its corpus frequency.
type Entry struct {
	Term      string `msgpack:"t"`
	Frequency int64  `msgpack:"f"`
}

// Store is an immutable set of entries sorted by term. The trie maps each
// term to its position in the sorted slice, which doubles as the entry ID
// used by the deletion index.
type Store struct {
	entries []Entry
	trie    *patricia.Trie
	maxFreq int64
}

// Merge normalizes terms, drops those that normalize to empty, sums the
// frequencies of duplicates (saturating at MaxInt64) and sorts by term.
func Merge(entries []Entry) ([]Entry, error) {
	merged := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.Frequency < 0 {
			return nil, fmt.Errorf("%w: %q has %d", ErrNegativeFrequency, e.Term, e.Frequency)
		}
		term := utils.NormalizeTerm(e.Term)
		if term == "" {
			continue
		}
		merged[term] = saturatingAdd(merged[term], e.Frequency)
	}
	out := make([]Entry, 0, len(merged))
	for term, freq := range merged {
		out = append(out, Entry{Term: term, Frequency: freq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out, nil
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// NewStore merges entries and builds the store.
func NewStore(entries []Entry) (*Store, error) {
	merged, err := Merge(entries)
	if err != nil {
		return nil, err
	}
	return newStore(merged), nil
}

// FromSorted builds a store from entries that are already merged and sorted,
// as read back from a snapshot. Ordering is verified, not repaired.
func FromSorted(entries []Entry) (*Store, error) {
	for i, e := range entries {
		if e.Term == "" {
			return nil, fmt.Errorf("empty term at %d", i)
		}
		if e.Frequency < 0 {
			return nil, fmt.Errorf("%w: %q has %d", ErrNegativeFrequency, e.Term, e.Frequency)
		}
		if i > 0 && entries[i-1].Term >= e.Term {
			return nil, fmt.Errorf("entries not strictly sorted at %d (%q >= %q)", i, entries[i-1].Term, e.Term)
		}
	}
	return newStore(entries), nil
}

func newStore(entries []Entry) *Store {
	s := &Store{entries: entries, trie: patricia.NewTrie()}
	for i, e := range entries {
		s.trie.Insert(patricia.Prefix(e.Term), int32(i))
		if e.Frequency > s.maxFreq {
			s.maxFreq = e.Frequency
		}
	}
	return s
}

// Lookup confirms an exact normalized term.
func (s *Store) Lookup(term string) (Entry, bool) {
	item := s.trie.Get(patricia.Prefix(term))
	if item == nil {
		return Entry{}, false
	}
	return s.entries[item.(int32)], true
}

// Contains reports whether the normalized term is present.
func (s *Store) Contains(term string) bool {
	_, ok := s.Lookup(term)
	return ok
}

// Entry returns the entry with the given ID.
func (s *Store) Entry(id int32) Entry {
	return s.entries[id]
}

// Entries returns the sorted entries. Callers must not modify the slice.
func (s *Store) Entries() []Entry {
	return s.entries
}

// Len returns the number of distinct terms.
func (s *Store) Len() int {
	return len(s.entries)
}

// MaxFrequency returns the highest frequency in the store.
func (s *Store) MaxFrequency() int64 {
	return s.maxFreq
}

// Complete lists up to limit terms starting with prefix, most frequent first.
// limit <= 0 returns every match.
func (s *Store) Complete(prefix string, limit int) []Entry {
	var matches []Entry
	s.trie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		matches = append(matches, s.entries[item.(int32)])
		return nil
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Frequency != matches[j].Frequency {
			return matches[i].Frequency > matches[j].Frequency
		}
		return matches[i].Term < matches[j].Term
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SourceHash fingerprints merged, sorted entries: xxhash64 over
// "term\tfreq\n" lines, hex encoded.
func SourceHash(entries []Entry) string {
	d := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, e := range entries {
		buf = append(buf[:0], e.Term...)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, e.Frequency, 10)
		buf = append(buf, '\n')
		d.Write(buf)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
