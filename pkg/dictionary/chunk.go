package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Chunk files (dict_NNNN.bin) store words ranked by popularity:
//
//	int32   word count (little endian)
//	repeat: uint16 length, word bytes, uint16 rank (1 = most frequent)
//
// Rank r maps to frequency 65536 - r so that rank 1 sorts highest.
const maxRank = math.MaxUint16

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ChunkID   int
	Filename  string
	WordCount int
}

// ListChunks scans dir for dict_NNNN.bin files, ordered by chunk ID.
func ListChunks(dir string) ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			log.Debugf("Skipping %s: not a numbered chunk", file)
			continue
		}
		wordCount, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
		}
		chunks = append(chunks, ChunkInfo{ChunkID: chunkID, Filename: file, WordCount: wordCount})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	return chunks, nil
}

// chunkWordCount reads the word count from a chunk file's header
func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// ReadChunk decodes one chunk stream.
func ReadChunk(r io.Reader) ([]Entry, error) {
	reader := bufio.NewReader(r)

	var totalEntries int32
	if err := binary.Read(reader, binary.LittleEndian, &totalEntries); err != nil {
		return nil, fmt.Errorf("failed to read chunk header: %w", err)
	}
	if totalEntries < 0 {
		return nil, fmt.Errorf("invalid word count %d", totalEntries)
	}

	entries := make([]Entry, 0, totalEntries)
	for len(entries) < int(totalEntries) {
		var wordLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &wordLen); err != nil {
			return nil, fmt.Errorf("failed to read word length at entry %d: %w", len(entries), err)
		}

		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(reader, wordBytes); err != nil {
			return nil, fmt.Errorf("failed to read word at entry %d: %w", len(entries), err)
		}

		var rank uint16
		if err := binary.Read(reader, binary.LittleEndian, &rank); err != nil {
			return nil, fmt.Errorf("failed to read rank at entry %d: %w", len(entries), err)
		}

		entries = append(entries, Entry{
			Term:      string(wordBytes),
			Frequency: int64(maxRank) - int64(rank) + 1,
		})
	}
	return entries, nil
}

// LoadChunkFile reads a single chunk file.
func LoadChunkFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file %s: %w", path, err)
	}
	defer file.Close()

	entries, err := ReadChunk(file)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}
	log.Debugf("Chunk %s loaded: %d words", filepath.Base(path), len(entries))
	return entries, nil
}

// LoadChunkDir reads every chunk in dir in ID order.
func LoadChunkDir(dir string) ([]Entry, error) {
	chunks, err := ListChunks(dir)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunk files found in %s: %w", dir, ErrEmptySource)
	}
	var entries []Entry
	for _, chunk := range chunks {
		chunkEntries, err := LoadChunkFile(chunk.Filename)
		if err != nil {
			return nil, err
		}
		entries = append(entries, chunkEntries...)
	}
	return entries, nil
}

// WriteChunk encodes words in rank order; the first word gets rank 1.
// Ranks beyond the uint16 range are clamped to the lowest rank.
func WriteChunk(w io.Writer, words []string) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(words))); err != nil {
		return err
	}
	for i, word := range words {
		if len(word) > math.MaxUint16 {
			return fmt.Errorf("word %d too long (%d bytes)", i, len(word))
		}
		rank := uint16(min(i+1, maxRank))
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(word))); err != nil {
			return err
		}
		if _, err := bw.WriteString(word); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, rank); err != nil {
			return err
		}
	}
	return bw.Flush()
}
