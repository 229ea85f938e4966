// Package distance implements rune-level edit distances used to verify
// spelling candidates: plain Levenshtein and the optimal string alignment
// variant of Damerau-Levenshtein (adjacent transposition costs 1, no
// substring is edited twice).
package distance

import "fmt"

// Metric selects the edit distance used to score candidates.
type Metric uint8

const (
	// Levenshtein counts insertions, deletions and substitutions.
	Levenshtein Metric = iota
	// OSA additionally counts a swap of two adjacent runes as one edit.
	OSA
)

func (m Metric) String() string {
	switch m {
	case Levenshtein:
		return "levenshtein"
	case OSA:
		return "osa"
	default:
		return fmt.Sprintf("metric(%d)", uint8(m))
	}
}

// ParseMetric maps a config value to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "levenshtein":
		return Levenshtein, nil
	case "osa", "damerau":
		return OSA, nil
	}
	return Levenshtein, fmt.Errorf("unknown distance metric %q", s)
}

// Distance returns the full distance between a and b under m.
func (m Metric) Distance(a, b []rune) int {
	return m.Bounded(a, b, -1)
}

// Bounded returns the distance between a and b, or max+1 as soon as the
// distance is known to exceed max. A negative max disables the bound.
func (m Metric) Bounded(a, b []rune, max int) int {
	if m == OSA {
		return boundedOSA(a, b, max)
	}
	return boundedLevenshtein(a, b, max)
}

// Strings is a convenience wrapper for string inputs.
func (m Metric) Strings(a, b string, max int) int {
	return m.Bounded([]rune(a), []rune(b), max)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// trim drops the common prefix and suffix, which never contribute edits.
func trim(a, b []rune) ([]rune, []rune) {
	for len(a) > 0 && len(b) > 0 && a[0] == b[0] {
		a, b = a[1:], b[1:]
	}
	for len(a) > 0 && len(b) > 0 && a[len(a)-1] == b[len(b)-1] {
		a, b = a[:len(a)-1], b[:len(b)-1]
	}
	return a, b
}

func boundedLevenshtein(a, b []rune, max int) int {
	if max >= 0 && abs(len(a)-len(b)) > max {
		return max + 1
	}
	a, b = trim(a, b)
	if len(a) == 0 {
		return capped(len(b), max)
	}
	if len(b) == 0 {
		return capped(len(a), max)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if max >= 0 && rowMin > max {
			return max + 1
		}
		prev, curr = curr, prev
	}
	return capped(prev[len(b)], max)
}

func boundedOSA(a, b []rune, max int) int {
	if max >= 0 && abs(len(a)-len(b)) > max {
		return max + 1
	}
	a, b = trim(a, b)
	if len(a) == 0 {
		return capped(len(b), max)
	}
	if len(b) == 0 {
		return capped(len(a), max)
	}

	// three rows: i-2, i-1, i
	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			v := min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				v = min(v, prev2[j-2]+1)
			}
			curr[j] = v
			rowMin = min(rowMin, v)
		}
		// a transposition can pull the next row below this row's minimum by
		// reaching back two rows, so only bail out when both rows exceed max
		if max >= 0 && rowMin > max && minOf(prev) > max {
			return max + 1
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return capped(prev[len(b)], max)
}

func minOf(row []int) int {
	m := row[0]
	for _, v := range row[1:] {
		m = min(m, v)
	}
	return m
}

func capped(d, max int) int {
	if max >= 0 && d > max {
		return max + 1
	}
	return d
}
