package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultFrequency is assigned to text lines that carry only a term.
const DefaultFrequency = 1

// ReadText parses a text dictionary: one entry per line, the term followed by
// an optional frequency separated by whitespace. Blank lines and lines
// starting with '#' are skipped. Terms are returned as written; Merge
// normalizes them.
func ReadText(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		entry := Entry{Term: fields[0], Frequency: DefaultFrequency}
		if len(fields) > 1 {
			freq, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad frequency %q: %w", lineNo, fields[1], err)
			}
			if freq < 0 {
				return nil, fmt.Errorf("line %d: %w: %d", lineNo, ErrNegativeFrequency, freq)
			}
			entry.Frequency = freq
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadTextFile reads a text dictionary from disk.
func LoadTextFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer file.Close()

	entries, err := ReadText(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}
	return entries, nil
}

// WriteText writes entries in the text format, one "term freq" line each.
func WriteText(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s %d\n", e.Term, e.Frequency); err != nil {
			return err
		}
	}
	return bw.Flush()
}
