// Package suggest is the core, deciding whether a word is known and ranking
// corrections for the ones that are not, per language.
package suggest

import (
	"context"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
)

// Checker is what the outer surfaces (IPC server, CLI, MCP tools) need from
// the engine. *Dispatcher implements it.
type Checker interface {
	// CheckWord reports whether term is in lang's dictionary
	CheckWord(term, lang string) (bool, error)

	// Suggest returns up to max ranked corrections for term
	Suggest(term, lang string, max int) ([]Suggestion, error)

	// Lookup runs the full check-then-correct flow
	Lookup(term, lang string, max int) (Lookup, error)

	// FilterUnknown returns the words of a batch that are not known
	FilterUnknown(words []string, lang string) ([]string, error)

	// Complete lists dictionary terms by prefix
	Complete(prefix, lang string, limit int) ([]dictionary.Entry, error)

	// Reload rebuilds lang from its source and user words
	Reload(ctx context.Context, lang string) (*Profile, error)

	AddUserWord(ctx context.Context, lang, word string, freq int64) (int64, error)
	RemoveUserWord(ctx context.Context, lang, word string) (bool, error)

	Info(lang string) (Info, error)
	Languages() []string
	Stats() Stats
}
