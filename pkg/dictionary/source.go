package dictionary

import (
	"fmt"
	"path/filepath"
)

// Source names where a language's dictionary lives on disk.
type Source struct {
	Lang string
	Path string
}

// Load reads the raw entries of the source, dispatching on its format.
// A source that parses but yields nothing is ErrEmptySource.
func (s Source) Load() ([]Entry, error) {
	format, err := DetectFileFormat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", s.Lang, err)
	}

	var entries []Entry
	switch format {
	case FormatText:
		entries, err = LoadTextFile(s.Path)
	case FormatChunk:
		entries, err = LoadChunkFile(s.Path)
	case FormatChunkDir:
		entries, err = LoadChunkDir(s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", s.Lang, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dictionary %s (%s): %w", s.Lang, s.Path, ErrEmptySource)
	}
	return entries, nil
}

// WatchPaths returns the directory to watch and the file name to match for
// changes, or an empty name when any chunk in the directory counts.
func (s Source) WatchPaths() (dir, name string) {
	if format, _ := DetectFileFormat(s.Path); format == FormatChunkDir {
		return filepath.Clean(s.Path), ""
	}
	return filepath.Dir(filepath.Clean(s.Path)), filepath.Base(s.Path)
}
