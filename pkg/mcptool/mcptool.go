// Package mcptool exposes the spell checker as Model Context Protocol tools.
package mcptool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var mcpLog = logger.New("mcp")

// Tools holds the checker the tool handlers answer from
type Tools struct {
	checker        suggest.Checker
	defaultLang    string
	maxSuggestions int
	maxLimit       int
}

// New creates the tool set. defaultLang is used when a call names no
// language and maxSuggestions when it names no max_suggestions.
// maxLimit caps max_suggestions when positive.
func New(checker suggest.Checker, defaultLang string, maxSuggestions, maxLimit int) *Tools {
	if maxSuggestions < 1 {
		maxSuggestions = suggest.DefaultMaxSuggestions
	}
	return &Tools{checker: checker, defaultLang: defaultLang, maxSuggestions: maxSuggestions, maxLimit: maxLimit}
}

// HandleCheckWord is the handler for the check_word tool
func (t *Tools) HandleCheckWord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	word, ok := arguments["word"].(string)
	if !ok {
		return nil, fmt.Errorf("word must be a string")
	}
	lang := t.language(arguments)

	known, err := t.checker.CheckWord(word, lang)
	if err != nil {
		return nil, fmt.Errorf("error checking word: %w", err)
	}

	text := fmt.Sprintf("%q is spelled correctly (%s).", word, lang)
	if !known {
		text = fmt.Sprintf("%q is not in the %s dictionary.", word, lang)
	}
	return textResult(text), nil
}

// HandleSuggestWords is the handler for the suggest_words tool
func (t *Tools) HandleSuggestWords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	word, ok := arguments["word"].(string)
	if !ok {
		return nil, fmt.Errorf("word must be a string")
	}
	lang := t.language(arguments)

	max, err := intArgument(arguments, "max_suggestions", t.maxSuggestions)
	if err != nil {
		return nil, err
	}
	if max < 1 {
		max = t.maxSuggestions
	}
	if t.maxLimit > 0 && max > t.maxLimit {
		max = t.maxLimit
	}

	res, err := t.checker.Lookup(word, lang, max)
	if err != nil {
		return nil, fmt.Errorf("error looking up word: %w", err)
	}
	if res.Known {
		return textResult(fmt.Sprintf("%q is spelled correctly (%s).", word, lang)), nil
	}
	if len(res.Suggestions) == 0 {
		return textResult(fmt.Sprintf("%q is not in the %s dictionary and no close words were found.", word, lang)), nil
	}

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("%q is not in the %s dictionary. Suggestions:\n\n", word, lang))
	for i, s := range res.Suggestions {
		summary.WriteString(fmt.Sprintf("%d. %s (distance %d, frequency %d)\n", i+1, s.Term, s.Distance, s.Frequency))
	}
	return textResult(summary.String()), nil
}

// HandleFilterWords is the handler for the filter_words tool
func (t *Tools) HandleFilterWords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	var words []string
	switch v := arguments["words"].(type) {
	case []interface{}:
		for _, w := range v {
			if s, ok := w.(string); ok {
				words = append(words, s)
			}
		}
	case []string:
		words = v
	case string:
		words = strings.Fields(v)
	default:
		return nil, fmt.Errorf("words must be an array of strings")
	}
	lang := t.language(arguments)

	unknown, err := t.checker.FilterUnknown(words, lang)
	if err != nil {
		return nil, fmt.Errorf("error filtering words: %w", err)
	}
	if len(unknown) == 0 {
		return textResult("No spelling issues found."), nil
	}
	return textResult(fmt.Sprintf("Found %d unknown words: %s", len(unknown), strings.Join(unknown, ", "))), nil
}

func (t *Tools) language(arguments map[string]interface{}) string {
	if lang, ok := arguments["language"].(string); ok && lang != "" {
		return lang
	}
	return t.defaultLang
}

// intArgument accepts JSON numbers as well as numeric strings
func intArgument(arguments map[string]interface{}, key string, def int) (int, error) {
	switch v := arguments[key].(type) {
	case nil:
		return def, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("failed to parse '%s' as number: %v", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("'%s' must be a number", key)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

// Register adds the spell checking tools to the MCP server
func (t *Tools) Register(mcpServer *server.MCPServer) {
	languages := strings.Join(t.checker.Languages(), ", ")

	mcpServer.AddTool(mcp.NewTool("check_word",
		mcp.WithDescription("Checks whether a word is spelled correctly in the given language's dictionary."),
		mcp.WithString("word",
			mcp.Description("The word to check"),
			mcp.Required(),
		),
		mcp.WithString("language",
			mcp.Description(fmt.Sprintf("Language code, one of: %s (default: %s)", languages, t.defaultLang)),
		),
	), t.HandleCheckWord)

	mcpServer.AddTool(mcp.NewTool("suggest_words",
		mcp.WithDescription("Suggests corrections for a misspelled word, closest and most common first."),
		mcp.WithString("word",
			mcp.Description("The possibly misspelled word"),
			mcp.Required(),
		),
		mcp.WithString("language",
			mcp.Description(fmt.Sprintf("Language code, one of: %s (default: %s)", languages, t.defaultLang)),
		),
		mcp.WithNumber("max_suggestions",
			mcp.Description(fmt.Sprintf("Maximum number of suggestions (default: %d)", t.maxSuggestions)),
		),
	), t.HandleSuggestWords)

	mcpServer.AddTool(mcp.NewTool("filter_words",
		mcp.WithDescription("Returns the words of a list that are not in the dictionary, in order and without repeats."),
		mcp.WithArray("words",
			mcp.Description("The words to check"),
			mcp.Required(),
		),
		mcp.WithString("language",
			mcp.Description(fmt.Sprintf("Language code, one of: %s (default: %s)", languages, t.defaultLang)),
		),
	), t.HandleFilterWords)

	mcpLog.Infof("Registered spell check tools for %s", languages)
}
