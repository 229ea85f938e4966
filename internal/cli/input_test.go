package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runREPL(t *testing.T, opts Options, input string) (string, *suggest.Dispatcher) {
	t.Helper()
	d := suggest.NewDispatcher(suggest.Options{Build: suggest.DefaultBuildOptions()}, "en", "kn")
	_, err := d.LoadDictionary("en", []dictionary.Entry{
		{Term: "hello", Frequency: 12000},
		{Term: "help", Frequency: 80},
		{Term: "world", Frequency: 60},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	h := NewInputHandlerWithIO(d, opts, strings.NewReader(input), &out)
	require.NoError(t, h.Start(context.Background()))
	return out.String(), d
}

func TestREPLChecksWords(t *testing.T) {
	out, d := runREPL(t, Options{Limit: 2, KeepCase: true}, "Helo world, 123\n")

	assert.Contains(t, out, "Helo, did you mean:")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "world")
	assert.NotContains(t, out, "123")
	// numbers are skipped, only two lookups ran
	assert.Equal(t, uint64(2), d.Stats().Lookups)
}

func TestREPLCommands(t *testing.T) {
	input := strings.Join([]string{
		":add wordcheck 3",
		"wordcheck",
		":rm wordcheck",
		":rm wordcheck",
		":complete hel",
		":lang xx",
		":lang kn",
		":info",
		":lang en",
		":stats",
		":bogus",
		":quit",
		"never reached",
	}, "\n")
	out, d := runREPL(t, Options{}, input)

	assert.Contains(t, out, "added 'wordcheck' (freq: 3)")
	assert.Contains(t, out, "removed 'wordcheck'")
	assert.Contains(t, out, "'wordcheck' is not a user word")
	assert.Contains(t, out, "Found 2 completions for prefix 'hel'")
	assert.Contains(t, out, "lang=kn")
	assert.Contains(t, out, "lang=en")
	assert.Contains(t, out, "lookups:")
	assert.NotContains(t, out, "never")

	known, err := d.CheckWord("wordcheck", "en")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestREPLInfo(t *testing.T) {
	out, _ := runREPL(t, Options{}, ":info\n")
	assert.Contains(t, out, "lang: en")
	assert.Contains(t, out, "words: 3 (0 user)")
	assert.Contains(t, out, "levenshtein")
}
