package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTerm trims surrounding whitespace, composes to NFC and case-folds.
// Every term stored in or queried against a dictionary goes through here,
// so the store never holds two spellings of the same word.
func NormalizeTerm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// a Caser keeps state, so one per call
	folded := cases.Fold().String(norm.NFC.String(s))
	return norm.NFC.String(folded)
}

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
