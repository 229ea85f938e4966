package mcptool

import (
	"context"
	"testing"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTools(t *testing.T) *Tools {
	t.Helper()
	return newTestToolsWithK(t, suggest.DefaultMaxSuggestions)
}

func newTestToolsWithK(t *testing.T, maxSuggestions int) *Tools {
	t.Helper()
	d := suggest.NewDispatcher(suggest.Options{Build: suggest.DefaultBuildOptions()}, "en")
	_, err := d.LoadDictionary("en", []dictionary.Entry{
		{Term: "hello", Frequency: 100},
		{Term: "help", Frequency: 80},
		{Term: "held", Frequency: 10},
		{Term: "world", Frequency: 60},
	})
	require.NoError(t, err)
	return New(d, "en", maxSuggestions, 10)
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestCheckWordTool(t *testing.T) {
	tools := newTestTools(t)
	ctx := context.Background()

	res, err := tools.HandleCheckWord(ctx, call(map[string]interface{}{"word": "hello"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "spelled correctly")

	res, err = tools.HandleCheckWord(ctx, call(map[string]interface{}{"word": "helo", "language": "en"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "not in the en dictionary")

	_, err = tools.HandleCheckWord(ctx, call(map[string]interface{}{"word": "hello", "language": "xx"}))
	assert.ErrorIs(t, err, suggest.ErrUnknownLanguage)

	_, err = tools.HandleCheckWord(ctx, call(map[string]interface{}{}))
	assert.Error(t, err)

	res, err = tools.HandleCheckWord(ctx, call(map[string]interface{}{"word": "   "}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "not in the en dictionary")
}

func TestSuggestWordsTool(t *testing.T) {
	tools := newTestTools(t)
	ctx := context.Background()

	res, err := tools.HandleSuggestWords(ctx, call(map[string]interface{}{"word": "helo", "max_suggestions": float64(1)}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "1. hello (distance 1, frequency 100)")
	assert.NotContains(t, text, "help")

	res, err = tools.HandleSuggestWords(ctx, call(map[string]interface{}{"word": "helo", "max_suggestions": "2"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "2. help")

	res, err = tools.HandleSuggestWords(ctx, call(map[string]interface{}{"word": "qqqqqqqq"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "no close words")

	res, err = tools.HandleSuggestWords(ctx, call(map[string]interface{}{"word": " \t "}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "no close words")

	_, err = tools.HandleSuggestWords(ctx, call(map[string]interface{}{"word": "helo", "max_suggestions": true}))
	assert.Error(t, err)
}

func TestSuggestWordsUsesConfiguredCount(t *testing.T) {
	tools := newTestToolsWithK(t, 2)

	res, err := tools.HandleSuggestWords(context.Background(), call(map[string]interface{}{"word": "helo"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "1. hello")
	assert.Contains(t, text, "2. help")
	assert.NotContains(t, text, "held")

	res, err = tools.HandleSuggestWords(context.Background(), call(map[string]interface{}{"word": "helo", "max_suggestions": float64(3)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "3. held")
}

func TestFilterWordsTool(t *testing.T) {
	tools := newTestTools(t)

	res, err := tools.HandleFilterWords(context.Background(), call(map[string]interface{}{
		"words": []interface{}{"hello", "wrld", "wrld", "help"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Found 1 unknown words: wrld", resultText(t, res))

	res, err = tools.HandleFilterWords(context.Background(), call(map[string]interface{}{"words": "hello world"}))
	require.NoError(t, err)
	assert.Equal(t, "No spelling issues found.", resultText(t, res))
}

func TestRegister(t *testing.T) {
	s := server.NewMCPServer("wordcheck-test", "0.0.0", server.WithToolCapabilities(true))
	assert.NotPanics(t, func() { newTestTools(t).Register(s) })
}
