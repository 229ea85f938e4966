// Package userdict stores words users add on top of a language's source
// dictionary. Adding a word that already exists increments its frequency.
package userdict

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
)

// ErrInvalidFrequency is returned for increments below 1.
var ErrInvalidFrequency = errors.New("user word frequency must be positive")

// Store persists user words per language. Words are expected normalized.
type Store interface {
	// Add increments word's frequency by freq and returns the new total.
	Add(ctx context.Context, lang, word string, freq int64) (int64, error)
	// Remove deletes word and reports whether it existed.
	Remove(ctx context.Context, lang, word string) (bool, error)
	// List returns all words of lang sorted by term.
	List(ctx context.Context, lang string) ([]dictionary.Entry, error)
	Close() error
}

// MemoryStore keeps user words in process memory. Used when Redis is off.
type MemoryStore struct {
	mu    sync.RWMutex
	words map[string]map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{words: make(map[string]map[string]int64)}
}

func (m *MemoryStore) Add(_ context.Context, lang, word string, freq int64) (int64, error) {
	if freq < 1 {
		return 0, ErrInvalidFrequency
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.words[lang] == nil {
		m.words[lang] = make(map[string]int64)
	}
	total := m.words[lang][word]
	// saturates like redis, which refuses to overflow a hash field
	if total > math.MaxInt64-freq {
		total = math.MaxInt64
	} else {
		total += freq
	}
	m.words[lang][word] = total
	return total, nil
}

func (m *MemoryStore) Remove(_ context.Context, lang, word string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.words[lang][word]; !ok {
		return false, nil
	}
	delete(m.words[lang], word)
	return true, nil
}

func (m *MemoryStore) List(_ context.Context, lang string) ([]dictionary.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]dictionary.Entry, 0, len(m.words[lang]))
	for w, f := range m.words[lang] {
		entries = append(entries, dictionary.Entry{Term: w, Frequency: f})
	}
	sortEntries(entries)
	return entries, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortEntries(entries []dictionary.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
}
