/*
Package server implements msgpack IPC for spell checking services.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per request to stdout. Every request carries an ID, echoed back, and an
action; a request without an action is a lookup.

# IPC

Checking a word:

	{"id": "req_001", "action": "check", "lang": "en", "w": "helo"}
	{"id": "req_001", "k": false}

Ranked corrections, with the input's capitalization applied when keep_case is set:

	{"id": "req_002", "action": "suggest", "lang": "en", "w": "Helo", "l": 2, "keep_case": true}
	{"id": "req_002", "s": [{"w": "Hello", "d": 1, "f": 100, "r": 1}, {"w": "Help", "d": 1, "f": 80, "r": 2}], "c": 2, "t": 41}

A lookup combines both: suggestions are only computed for unknown words.

	{"id": "req_003", "lang": "en", "w": "helo"}
	{"id": "req_003", "k": false, "s": [...], "c": 2, "t": 38}

Batch filtering returns the unknown words of a list, in order, once each:

	{"id": "req_004", "action": "filter", "lang": "en", "words": ["the", "qick", "fox"]}
	{"id": "req_004", "unknown": ["qick"]}

Prefix completion lists dictionary words by frequency:

	{"id": "req_005", "action": "complete", "lang": "en", "p": "hel", "l": 3}

Dictionary management rebuilds a language and swaps it in atomically:

	{"id": "dict_001", "action": "reload", "lang": "en"}
	{"id": "dict_002", "action": "add_word", "lang": "en", "w": "wordcheck", "f": 1}
	{"id": "dict_003", "action": "remove_word", "lang": "en", "w": "wordcheck"}
	{"id": "dict_004", "action": "info", "lang": "en"}

Failures are reported as {"id", "e", "c"} where c is 400 for bad requests,
404 for an unknown language, 409 for a language that is not loaded, 429 when
rate limited and 500 otherwise.
*/
package server

// Request is the union of all request fields; Action selects which apply.
type Request struct {
	ID       string   `msgpack:"id"`
	Action   string   `msgpack:"action,omitempty"`
	Lang     string   `msgpack:"lang,omitempty"`
	Word     string   `msgpack:"w,omitempty"`
	Prefix   string   `msgpack:"p,omitempty"`
	Limit    int      `msgpack:"l,omitempty"`
	Words    []string `msgpack:"words,omitempty"`
	Freq     int64    `msgpack:"f,omitempty"`
	KeepCase bool     `msgpack:"keep_case,omitempty"`
}

// Actions understood by the server.
const (
	ActionCheck      = "check"
	ActionSuggest    = "suggest"
	ActionLookup     = "lookup"
	ActionFilter     = "filter"
	ActionComplete   = "complete"
	ActionReload     = "reload"
	ActionAddWord    = "add_word"
	ActionRemoveWord = "remove_word"
	ActionInfo       = "info"
	ActionHealth     = "health"
)

// Suggestion - minimal correction entry
type Suggestion struct {
	Word      string `msgpack:"w"`
	Distance  int    `msgpack:"d"`
	Frequency int64  `msgpack:"f"`
	Rank      uint16 `msgpack:"r"`
}

// CheckResponse answers check. Skipped is set for tokens that are not words
// (numbers, punctuation) when input filtering is on.
type CheckResponse struct {
	ID      string `msgpack:"id"`
	Known   bool   `msgpack:"k"`
	Skipped bool   `msgpack:"skip,omitempty"`
}

// SuggestResponse answers suggest.
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// LookupResponse answers lookup.
type LookupResponse struct {
	ID          string       `msgpack:"id"`
	Known       bool         `msgpack:"k"`
	Skipped     bool         `msgpack:"skip,omitempty"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	Truncated   bool         `msgpack:"trunc,omitempty"`
	TimeTaken   int64        `msgpack:"t"`
}

// FilterResponse answers filter.
type FilterResponse struct {
	ID      string   `msgpack:"id"`
	Unknown []string `msgpack:"unknown"`
}

// CompletionSuggestion - prefix completion entry
type CompletionSuggestion struct {
	Word      string `msgpack:"w"`
	Frequency int64  `msgpack:"f"`
	Rank      uint16 `msgpack:"r"`
}

// CompleteResponse answers complete.
type CompleteResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
}

// StatusResponse answers reload, add_word, remove_word and health.
type StatusResponse struct {
	ID        string   `msgpack:"id"`
	Status    string   `msgpack:"status"`
	Word      string   `msgpack:"w,omitempty"`
	Frequency int64    `msgpack:"f,omitempty"`
	Words     int      `msgpack:"words,omitempty"`
	Languages []string `msgpack:"languages,omitempty"`
}

// Info - dictionary details
type Info struct {
	Lang                       string  `msgpack:"lang"`
	Words                      int     `msgpack:"words"`
	UserWords                  int     `msgpack:"user_words"`
	FilterBits                 uint64  `msgpack:"m"`
	FilterHashes               uint32  `msgpack:"k"`
	FilterBytes                int     `msgpack:"filter_bytes"`
	FalsePositiveRate          float64 `msgpack:"fp"`
	EstimatedFalsePositiveRate float64 `msgpack:"fp_est"`
	FillRatio                  float64 `msgpack:"fill"`
	IndexKeys                  int     `msgpack:"index_keys"`
	MaxDistance                int     `msgpack:"max_distance"`
	Metric                     string  `msgpack:"metric"`
	SourceHash                 string  `msgpack:"source_hash"`
	BuiltAt                    int64   `msgpack:"built_at"`
	BuildMillis                int64   `msgpack:"build_ms"`
	FromSnapshot               bool    `msgpack:"snapshot"`
}

// InfoResponse answers info.
type InfoResponse struct {
	ID   string `msgpack:"id"`
	Info Info   `msgpack:"info"`
}

// ErrorResponse holds basic error information for any request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
