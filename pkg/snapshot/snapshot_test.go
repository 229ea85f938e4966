package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/wordcheck/pkg/bloom"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFile() *File {
	f := bloom.New(2, 0.01)
	f.Add("hello")
	f.Add("help")
	entries := []dictionary.Entry{{Term: "hello", Frequency: 100}, {Term: "help", Frequency: 80}}
	return &File{
		Language:          "en",
		SourceHash:        dictionary.SourceHash(entries),
		MaxDistance:       2,
		Metric:            "levenshtein",
		FalsePositiveRate: 0.01,
		BuiltAt:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Filter:            f.Params(),
		Entries:           entries,
		Postings:          map[string][]int32{"hello": {0}, "helo": {0}, "help": {1}, "hel": {0, 1}},
	}
}

func TestWriteRead(t *testing.T) {
	path := Path(t.TempDir(), "en")
	want := sampleFile()
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, got.Format)
	assert.Equal(t, want.SourceHash, got.SourceHash)
	assert.Equal(t, want.Entries, got.Entries)
	assert.Equal(t, want.Postings, got.Postings)
	assert.Equal(t, want.Filter, got.Filter)
	assert.True(t, want.BuiltAt.Equal(got.BuiltAt))

	filter, err := bloom.FromParams(got.Filter)
	require.NoError(t, err)
	assert.True(t, filter.MayContain("hello"))
}

func TestWriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "a"+Extension), sampleFile()))
	require.NoError(t, Write(filepath.Join(dir, "b"+Extension), sampleFile()))

	a, err := os.ReadFile(filepath.Join(dir, "a"+Extension))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b"+Extension))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCheck(t *testing.T) {
	f := sampleFile()
	f.Format = FormatVersion
	ok := Expect{Language: "en", SourceHash: f.SourceHash, MaxDistance: 2, Metric: "levenshtein", FalsePositiveRate: 0.01}
	assert.NoError(t, f.Check(ok))

	tests := []struct {
		name   string
		mutate func(*Expect, *File)
	}{
		{"language", func(e *Expect, _ *File) { e.Language = "de" }},
		{"source hash", func(e *Expect, _ *File) { e.SourceHash = "beef" }},
		{"max distance", func(e *Expect, _ *File) { e.MaxDistance = 1 }},
		{"metric", func(e *Expect, _ *File) { e.Metric = "osa" }},
		{"fp rate", func(e *Expect, _ *File) { e.FalsePositiveRate = 0.001 }},
		{"format", func(_ *Expect, f *File) { f.Format = FormatVersion + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, file := ok, *f
			tt.mutate(&e, &file)
			assert.ErrorIs(t, file.Check(e), ErrStale)
		})
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(Path(dir, "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	empty := Path(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = Read(empty)
	assert.ErrorIs(t, err, ErrCorrupt)

	garbage := Path(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte{0xc1, 0xff, 0x00}, 0644))
	_, err = Read(garbage)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, Remove(dir, "garbage"))
	require.NoError(t, Remove(dir, "garbage"))
	assert.NoFileExists(t, garbage)
}
