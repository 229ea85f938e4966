// Package snapshot persists built language profiles so a restart can skip
// rebuilding the deletion index. One MessagePack file per language holds the
// filter bits, the merged entries and the index postings, stamped with the
// build parameters and the hash of the entries it was built from.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/bloom"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/edsrzf/mmap-go"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion changes whenever the layout of File changes.
const FormatVersion = 1

// Extension of snapshot files.
const Extension = ".wcs"

var (
	// ErrStale means the snapshot was built from different entries or parameters.
	ErrStale = errors.New("snapshot is stale")
	// ErrCorrupt means the snapshot could not be decoded.
	ErrCorrupt = errors.New("snapshot is corrupt")
)

// File is the on-disk form of one language profile.
type File struct {
	Format            int                `msgpack:"format"`
	Language          string             `msgpack:"lang"`
	SourceHash        string             `msgpack:"source_hash"`
	MaxDistance       int                `msgpack:"max_distance"`
	Metric            string             `msgpack:"metric"`
	FalsePositiveRate float64            `msgpack:"fp_rate"`
	BuiltAt           time.Time          `msgpack:"built_at"`
	Filter            bloom.Params       `msgpack:"filter"`
	Entries           []dictionary.Entry `msgpack:"entries"`
	UserWords         int                `msgpack:"user_words"`
	Postings          map[string][]int32 `msgpack:"postings"`
}

// Expect is what the current configuration requires of a snapshot.
type Expect struct {
	Language          string
	SourceHash        string
	MaxDistance       int
	Metric            string
	FalsePositiveRate float64
}

// Check returns ErrStale, wrapped with the first mismatch, unless f was
// built under exactly the expected parameters.
func (f *File) Check(e Expect) error {
	switch {
	case f.Format != FormatVersion:
		return fmt.Errorf("%w: format %d, want %d", ErrStale, f.Format, FormatVersion)
	case f.Language != e.Language:
		return fmt.Errorf("%w: language %q, want %q", ErrStale, f.Language, e.Language)
	case f.SourceHash != e.SourceHash:
		return fmt.Errorf("%w: source hash %s, want %s", ErrStale, f.SourceHash, e.SourceHash)
	case f.MaxDistance != e.MaxDistance:
		return fmt.Errorf("%w: max distance %d, want %d", ErrStale, f.MaxDistance, e.MaxDistance)
	case f.Metric != e.Metric:
		return fmt.Errorf("%w: metric %s, want %s", ErrStale, f.Metric, e.Metric)
	case f.FalsePositiveRate != e.FalsePositiveRate:
		return fmt.Errorf("%w: false positive rate %v, want %v", ErrStale, f.FalsePositiveRate, e.FalsePositiveRate)
	}
	return nil
}

// Path returns the snapshot location for lang under dir.
func Path(dir, lang string) string {
	return filepath.Join(dir, lang+Extension)
}

// Write encodes f and atomically replaces the file at path.
func Write(path string, f *File) error {
	f.Format = FormatVersion
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	// sorted keys keep identical profiles byte-identical on disk
	enc.SetSortMapKeys(true)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", path, err)
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// Read maps the file at path and decodes it. Missing files return an error
// satisfying os.IsNotExist; undecodable ones return ErrCorrupt.
func Read(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map snapshot %s: %w", path, err)
	}
	defer data.Unmap()

	// decoded strings and slices are copies, nothing references the mapping
	// after Unmap
	var f File
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &f, nil
}

// Remove deletes the snapshot for lang, ignoring a missing file.
func Remove(dir, lang string) error {
	err := os.Remove(Path(dir, lang))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
