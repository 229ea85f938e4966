package suggest

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/snapshot"
	"github.com/bastiangx/wordcheck/pkg/userdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	opts.Build = testOptions()
	d := NewDispatcher(opts, "en", "kn")
	_, err := d.LoadDictionary("en", scenarioDictionary)
	require.NoError(t, err)
	return d
}

func TestDispatcherScenarios(t *testing.T) {
	d := newTestDispatcher(t, Options{})

	known, err := d.CheckWord("helo", "en")
	require.NoError(t, err)
	assert.False(t, known)

	got, err := d.Suggest("helo", "en", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "help"}, suggestionTerms(got))

	known, err = d.CheckWord("hello", "en")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = d.CheckWord("", "en")
	require.NoError(t, err)
	assert.False(t, known)

	_, err = d.CheckWord("hello", "xx")
	assert.ErrorIs(t, err, ErrUnknownLanguage)

	_, err = d.CheckWord("hello", "kn")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestReloadWithAddedTerm(t *testing.T) {
	d := newTestDispatcher(t, Options{})

	// "help" removed, "helps" added
	_, err := d.LoadDictionary("en", []dictionary.Entry{
		{Term: "hello", Frequency: 100},
		{Term: "held", Frequency: 10},
		{Term: "helps", Frequency: 50},
	})
	require.NoError(t, err)

	got, err := d.Suggest("help", "en", 5)
	require.NoError(t, err)
	assert.Contains(t, got, Suggestion{Term: "helps", Distance: 1, Frequency: 50})

	known, err := d.CheckWord("help", "en")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestConcurrentReload(t *testing.T) {
	d := NewDispatcher(Options{Build: testOptions()}, "en")

	// two dictionaries that disagree on every word: a reader must see all
	// of one or all of the other
	var oldWords, newWords []dictionary.Entry
	for i := 0; i < 300; i++ {
		oldWords = append(oldWords, dictionary.Entry{Term: fmt.Sprintf("old%d", i), Frequency: 1})
		newWords = append(newWords, dictionary.Entry{Term: fmt.Sprintf("new%d", i), Frequency: 1})
	}
	_, err := d.LoadDictionary("en", oldWords)
	require.NoError(t, err)

	var stop atomic.Bool
	var wg sync.WaitGroup
	var mixed atomic.Int64
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				p, err := d.Resolve("en")
				if err != nil {
					mixed.Add(1)
					return
				}
				o, n := p.Check("old7"), p.Check("new7")
				if o == n {
					mixed.Add(1)
				}
				if o != p.Check("old299") || n != p.Check("new299") {
					mixed.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		words := newWords
		if i%2 == 1 {
			words = oldWords
		}
		_, err := d.LoadDictionary("en", words)
		require.NoError(t, err)
	}
	stop.Store(true)
	wg.Wait()
	assert.Zero(t, mixed.Load())
}

func TestFilterUnknown(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	got, err := d.FilterUnknown([]string{"hello", "Helo", "helo", "123", "held", "wrld", "", "x!y"}, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"Helo", "wrld"}, got)

	_, err = d.FilterUnknown([]string{"a"}, "xx")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestComplete(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	got, err := d.Complete("HEL", "en", 2)
	require.NoError(t, err)
	assert.Equal(t, []dictionary.Entry{{Term: "hello", Frequency: 100}, {Term: "help", Frequency: 80}}, got)

	got, err = d.Complete(" ", "en", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUserWords(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, Options{})

	total, err := d.AddUserWord(ctx, "en", "Wordcheck", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	known, err := d.CheckWord("wordcheck", "en")
	require.NoError(t, err)
	assert.True(t, known)

	total, err = d.AddUserWord(ctx, "en", "wordcheck", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	// user frequency adds to a source word's frequency
	_, err = d.AddUserWord(ctx, "en", "held", 500)
	require.NoError(t, err)
	got, err := d.Suggest("helo", "en", 1)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Term: "held", Distance: 1, Frequency: 510}}, got)

	info, err := d.Info("en")
	require.NoError(t, err)
	assert.Equal(t, 2, info.UserWords)
	assert.Equal(t, 4, info.Words)

	removed, err := d.RemoveUserWord(ctx, "en", "wordcheck")
	require.NoError(t, err)
	assert.True(t, removed)
	known, err = d.CheckWord("wordcheck", "en")
	require.NoError(t, err)
	assert.False(t, known)

	removed, err = d.RemoveUserWord(ctx, "en", "hello")
	require.NoError(t, err)
	assert.False(t, removed, "source words are not user words")

	_, err = d.AddUserWord(ctx, "en", "  ", 1)
	assert.ErrorIs(t, err, ErrInvalidWord)

	_, err = d.AddUserWord(ctx, "kn", "ಕನ್ನಡ", 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestUserWordFrequencySaturates(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, Options{})

	total, err := d.AddUserWord(ctx, "en", "zzz", math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)

	total, err = d.AddUserWord(ctx, "en", "zzz", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)

	_, err = d.AddUserWord(ctx, "en", "other", 1)
	require.NoError(t, err)
	known, err := d.CheckWord("other", "en")
	require.NoError(t, err)
	assert.True(t, known)
}

// corruptStore reports one word with a negative frequency, which no build accepts.
type corruptStore struct {
	*userdict.MemoryStore
	bad string
}

func (c corruptStore) List(ctx context.Context, lang string) ([]dictionary.Entry, error) {
	entries, err := c.MemoryStore.List(ctx, lang)
	for i := range entries {
		if entries[i].Term == c.bad {
			entries[i].Frequency = -1
		}
	}
	return entries, err
}

func TestFailedUserWordAddIsUndone(t *testing.T) {
	ctx := context.Background()
	mem := userdict.NewMemoryStore()
	d := newTestDispatcher(t, Options{UserWords: corruptStore{MemoryStore: mem, bad: "broken"}})

	_, err := d.AddUserWord(ctx, "en", "broken", 1)
	assert.ErrorIs(t, err, dictionary.ErrNegativeFrequency)

	list, err := mem.List(ctx, "en")
	require.NoError(t, err)
	assert.Empty(t, list, "store rolled back")

	total, err := d.AddUserWord(ctx, "en", "fine", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	known, err := d.CheckWord("fine", "en")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestReloadFromSourceAndSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "en.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello 100\nhelp 80\nheld 10\n"), 0644))
	snapDir := filepath.Join(dir, "snapshots")

	opts := Options{
		Build:       testOptions(),
		Sources:     map[string]dictionary.Source{"en": {Lang: "en", Path: src}},
		SnapshotDir: snapDir,
	}

	first := NewDispatcher(opts, "en", "kn")
	require.NoError(t, first.LoadAll(ctx, 2))
	info, err := first.Info("en")
	require.NoError(t, err)
	assert.False(t, info.FromSnapshot)
	assert.FileExists(t, snapshot.Path(snapDir, "en"))

	_, err = first.Info("kn")
	assert.ErrorIs(t, err, ErrNotLoaded, "no source configured for kn")

	second := NewDispatcher(opts, "en")
	require.NoError(t, second.LoadAll(ctx, 1))
	info, err = second.Info("en")
	require.NoError(t, err)
	assert.True(t, info.FromSnapshot)
	got, err := second.Suggest("helo", "en", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "help"}, suggestionTerms(got))

	// source changed: snapshot is stale and gets rebuilt
	require.NoError(t, os.WriteFile(src, []byte("hello 100\nhelps 50\n"), 0644))
	p, err := second.Reload(ctx, "en")
	require.NoError(t, err)
	info, err = second.Info("en")
	require.NoError(t, err)
	assert.False(t, info.FromSnapshot)
	assert.Equal(t, 2, info.Words)
	assert.Equal(t, p.SourceHash(), info.SourceHash)

	// a different build distance makes the snapshot stale as well
	changed := opts
	changed.Build.Index.MaxDistance = 1
	third := NewDispatcher(changed, "en")
	require.NoError(t, third.LoadAll(ctx, 1))
	info, err = third.Info("en")
	require.NoError(t, err)
	assert.False(t, info.FromSnapshot)
	assert.Equal(t, 1, info.MaxDistance)
}

func TestCopiedSnapshotIsRebuilt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	content := []byte("hello 100\nhelp 80\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.txt"), content, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "de.txt"), content, 0644))
	snapDir := filepath.Join(dir, "snapshots")

	opts := Options{
		Build: testOptions(),
		Sources: map[string]dictionary.Source{
			"en": {Lang: "en", Path: filepath.Join(dir, "en.txt")},
			"de": {Lang: "de", Path: filepath.Join(dir, "de.txt")},
		},
		SnapshotDir: snapDir,
	}
	first := NewDispatcher(opts, "en")
	require.NoError(t, first.LoadAll(ctx, 1))

	// same source hash, wrong language
	data, err := os.ReadFile(snapshot.Path(snapDir, "en"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(snapshot.Path(snapDir, "de"), data, 0644))

	second := NewDispatcher(opts, "en", "de")
	require.NoError(t, second.LoadAll(ctx, 1))

	info, err := second.Info("de")
	require.NoError(t, err)
	assert.False(t, info.FromSnapshot)
	assert.Equal(t, "de", info.Lang)

	info, err = second.Info("en")
	require.NoError(t, err)
	assert.True(t, info.FromSnapshot)
	assert.Equal(t, "en", info.Lang)

	f, err := snapshot.Read(snapshot.Path(snapDir, "de"))
	require.NoError(t, err)
	assert.Equal(t, "de", f.Language, "rebuilt snapshot replaces the copy")
}

func TestReloadFailureKeepsProfile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "en.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello 100\n"), 0644))

	d := NewDispatcher(Options{
		Build:   testOptions(),
		Sources: map[string]dictionary.Source{"en": {Path: src}},
	}, "en", "kn")
	require.NoError(t, d.LoadAll(ctx, 0))

	require.NoError(t, os.WriteFile(src, []byte("hello -4\n"), 0644))
	_, err := d.Reload(ctx, "en")
	assert.ErrorIs(t, err, dictionary.ErrNegativeFrequency)

	known, err := d.CheckWord("hello", "en")
	require.NoError(t, err)
	assert.True(t, known, "old profile still served")

	_, err = d.Reload(ctx, "kn")
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = d.Reload(ctx, "xx")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestLoadAllFailsOnBadSource(t *testing.T) {
	d := NewDispatcher(Options{
		Build:   testOptions(),
		Sources: map[string]dictionary.Source{"en": {Path: filepath.Join(t.TempDir(), "missing.txt")}},
	}, "en")
	assert.Error(t, d.LoadAll(context.Background(), 2))
	_, err := d.Resolve("en")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStats(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	_, _ = d.CheckWord("hello", "en")
	_, _ = d.Suggest("helo", "en", 2)
	_, _ = d.CheckWord("hello", "xx")

	s := d.Stats()
	assert.Equal(t, uint64(2), s.Lookups)
	assert.Equal(t, 2, s.Registered)
	assert.Equal(t, 1, s.Loaded)
	assert.Equal(t, uint64(1), s.Rebuilds)
	assert.Equal(t, []string{"en", "kn"}, d.Languages())
}

func suggestionTerms(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.Term
	}
	return out
}
