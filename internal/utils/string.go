package utils

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CasePattern records the capitalization shape of a user's input word so
// suggestions can be returned in the same shape.
type CasePattern uint8

const (
	CaseLower CasePattern = iota
	CaseTitle
	CaseUpper
	// CaseMixed covers anything else, e.g. "iPhone"; suggestions stay folded.
	CaseMixed
)

// DetectCase classifies the capitalization of s. Non-letters are ignored;
// a word without cased letters is CaseLower.
func DetectCase(s string) CasePattern {
	upper, lower, letters := 0, 0, 0
	firstUpper := false
	for i, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			upper++
			if i == 0 {
				firstUpper = true
			}
		case unicode.IsLower(r):
			lower++
		}
	}
	switch {
	case upper == 0:
		return CaseLower
	case lower == 0 && letters > 1:
		return CaseUpper
	case firstUpper && upper == 1:
		return CaseTitle
	case lower == 0:
		// single uppercase letter, e.g. "I"
		return CaseTitle
	default:
		return CaseMixed
	}
}

// Apply reshapes a folded word to the pattern.
func (p CasePattern) Apply(word string) string {
	switch p {
	case CaseUpper:
		return cases.Upper(language.Und).String(word)
	case CaseTitle:
		r, size := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			return word
		}
		return string(unicode.ToTitle(r)) + word[size:]
	default:
		return word
	}
}

func (p CasePattern) String() string {
	switch p {
	case CaseLower:
		return "lower"
	case CaseTitle:
		return "title"
	case CaseUpper:
		return "upper"
	default:
		return "mixed"
	}
}
