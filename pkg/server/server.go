package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/config"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/bastiangx/wordcheck/pkg/userdict"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"
)

// Server handles the msgpack IPC for spell checking
type Server struct {
	checker     suggest.Checker
	config      *config.Config
	defaultLang string
	limiter     *rate.Limiter
	decoder     *msgpack.Decoder
	writer      *bufio.Writer
	encoder     *msgpack.Encoder
}

// NewServer creates a spell check server using stdin/stdout for IPC
func NewServer(checker suggest.Checker, cfg *config.Config) *Server {
	return NewServerWithIO(checker, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over arbitrary streams
func NewServerWithIO(checker suggest.Checker, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bw := bufio.NewWriter(w)
	s := &Server{
		checker: checker,
		config:  cfg,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		writer:  bw,
		encoder: msgpack.NewEncoder(bw),
	}
	s.encoder.SetSortMapKeys(true)
	if len(cfg.Dict.Languages) > 0 {
		s.defaultLang = cfg.Dict.Languages[0]
	}
	if cfg.Server.RateLimit > 0 {
		burst := int(cfg.Server.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), burst)
	}
	return s
}

// Start begins listening for IPC requests until the input closes or ctx is done
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")

	// Signal that the server is ready
	s.sendResponse(StatusResponse{Status: "ready", Languages: s.checker.Languages()})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var raw msgpack.RawMessage
		if err := s.decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// the stream cannot be resynchronized after malformed bytes
			log.Errorf("Decoding request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			return err
		}
		s.handleRequest(ctx, raw)
	}
}

// handleRequest decodes one message and dispatches on its action
func (s *Server) handleRequest(ctx context.Context, raw msgpack.RawMessage) {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Errorf("Unmarshaling request: %v", err)
		s.sendError("", "Invalid request fields", 400)
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.sendError(req.ID, "Rate limit exceeded", 429)
		return
	}
	if req.Lang == "" {
		req.Lang = s.defaultLang
	}

	switch req.Action {
	case ActionCheck:
		s.handleCheck(req)
	case ActionSuggest:
		s.handleSuggest(req)
	case ActionLookup, "":
		s.handleLookup(req)
	case ActionFilter:
		s.handleFilter(req)
	case ActionComplete:
		s.handleComplete(req)
	case ActionReload:
		s.handleReload(ctx, req)
	case ActionAddWord:
		s.handleAddWord(ctx, req)
	case ActionRemoveWord:
		s.handleRemoveWord(ctx, req)
	case ActionInfo:
		s.handleInfo(req)
	case ActionHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok", Languages: s.checker.Languages()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

// sendResponse encodes one response and flushes it to the client
func (s *Server) sendResponse(response any) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

// sendFailure maps an engine error onto an error response
func (s *Server) sendFailure(id string, err error) {
	code := 500
	switch {
	case errors.Is(err, suggest.ErrUnknownLanguage):
		code = 404
	case errors.Is(err, suggest.ErrNotLoaded), errors.Is(err, suggest.ErrNoSource):
		code = 409
	case errors.Is(err, suggest.ErrInvalidWord), errors.Is(err, userdict.ErrInvalidFrequency):
		code = 400
	}
	if code == 500 {
		log.Errorf("Request %s failed: %v", id, err)
	} else {
		log.Debugf("Request %s rejected: %v", id, err)
	}
	s.sendError(id, err.Error(), code)
}

// validateTerm checks a word or prefix field. skip reports a token that is
// not a word and should not be checked at all.
func (s *Server) validateTerm(id, field, term string) (skip, ok bool) {
	if term == "" {
		s.sendError(id, fmt.Sprintf("Missing '%s' parameter", field), 400)
		return false, false
	}
	if max := s.config.Server.MaxTermLen; max > 0 && utf8.RuneCountInString(term) > max {
		s.sendError(id, fmt.Sprintf("'%s' exceeds maximum length of %d characters", field, max), 400)
		return false, false
	}
	// blank terms are answered as unknown, not skipped
	normalized := utils.NormalizeTerm(term)
	if normalized != "" && s.config.Server.EnableFilter && !utils.IsValidInput(normalized) {
		return true, true
	}
	return false, true
}

// maxSuggestions is the configured suggestion count used when a request sets no limit
func (s *Server) maxSuggestions() int {
	if k := s.config.Spell.MaxSuggestions; k > 0 {
		return k
	}
	return suggest.DefaultMaxSuggestions
}

// limit clamps the requested limit into [1, max_limit], using def when unset
func (s *Server) limit(requested, def int) int {
	if requested < 1 {
		requested = def
	}
	if max := s.config.Server.MaxLimit; max > 0 && requested > max {
		requested = max
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

func (s *Server) handleCheck(req Request) {
	skip, ok := s.validateTerm(req.ID, "w", req.Word)
	if !ok {
		return
	}
	if skip {
		s.sendResponse(CheckResponse{ID: req.ID, Skipped: true})
		return
	}
	known, err := s.checker.CheckWord(req.Word, req.Lang)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	s.sendResponse(CheckResponse{ID: req.ID, Known: known})
}

func (s *Server) handleSuggest(req Request) {
	skip, ok := s.validateTerm(req.ID, "w", req.Word)
	if !ok {
		return
	}
	if skip {
		s.sendResponse(SuggestResponse{ID: req.ID, Suggestions: []Suggestion{}})
		return
	}
	start := time.Now()
	suggestions, err := s.checker.Suggest(req.Word, req.Lang, s.limit(req.Limit, s.maxSuggestions()))
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	out := toResponseSuggestions(suggestions, req.Word, req.KeepCase)
	s.sendResponse(SuggestResponse{
		ID:          req.ID,
		Suggestions: out,
		Count:       len(out),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleLookup(req Request) {
	skip, ok := s.validateTerm(req.ID, "w", req.Word)
	if !ok {
		return
	}
	if skip {
		s.sendResponse(LookupResponse{ID: req.ID, Skipped: true, Suggestions: []Suggestion{}})
		return
	}
	start := time.Now()
	res, err := s.checker.Lookup(req.Word, req.Lang, s.limit(req.Limit, s.maxSuggestions()))
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	out := toResponseSuggestions(res.Suggestions, req.Word, req.KeepCase)
	s.sendResponse(LookupResponse{
		ID:          req.ID,
		Known:       res.Known,
		Suggestions: out,
		Count:       len(out),
		Truncated:   res.Truncated,
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleFilter(req Request) {
	if len(req.Words) == 0 {
		s.sendResponse(FilterResponse{ID: req.ID, Unknown: []string{}})
		return
	}
	unknown, err := s.checker.FilterUnknown(req.Words, req.Lang)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	if unknown == nil {
		unknown = []string{}
	}
	s.sendResponse(FilterResponse{ID: req.ID, Unknown: unknown})
}

func (s *Server) handleComplete(req Request) {
	if _, ok := s.validateTerm(req.ID, "p", req.Prefix); !ok {
		return
	}
	entries, err := s.checker.Complete(req.Prefix, req.Lang, s.limit(req.Limit, s.config.CLI.DefaultLimit))
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	ranks := utils.CreateRankList(len(entries))
	out := make([]CompletionSuggestion, len(entries))
	for i, e := range entries {
		out[i] = CompletionSuggestion{Word: e.Term, Frequency: e.Frequency, Rank: ranks[i]}
	}
	s.sendResponse(CompleteResponse{ID: req.ID, Suggestions: out, Count: len(out)})
}

func (s *Server) handleReload(ctx context.Context, req Request) {
	p, err := s.checker.Reload(ctx, req.Lang)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	log.Infof("Reloaded %s: %d words", req.Lang, p.Store().Len())
	s.sendResponse(StatusResponse{ID: req.ID, Status: "reloaded", Words: p.Store().Len()})
}

func (s *Server) handleAddWord(ctx context.Context, req Request) {
	if _, ok := s.validateTerm(req.ID, "w", req.Word); !ok {
		return
	}
	freq := req.Freq
	if freq == 0 {
		freq = 1
	}
	total, err := s.checker.AddUserWord(ctx, req.Lang, req.Word, freq)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	s.sendResponse(StatusResponse{ID: req.ID, Status: "added", Word: utils.NormalizeTerm(req.Word), Frequency: total})
}

func (s *Server) handleRemoveWord(ctx context.Context, req Request) {
	if _, ok := s.validateTerm(req.ID, "w", req.Word); !ok {
		return
	}
	removed, err := s.checker.RemoveUserWord(ctx, req.Lang, req.Word)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	status := "removed"
	if !removed {
		status = "not_found"
	}
	s.sendResponse(StatusResponse{ID: req.ID, Status: status, Word: utils.NormalizeTerm(req.Word)})
}

func (s *Server) handleInfo(req Request) {
	info, err := s.checker.Info(req.Lang)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	s.sendResponse(InfoResponse{ID: req.ID, Info: Info{
		Lang:                       info.Lang,
		Words:                      info.Words,
		UserWords:                  info.UserWords,
		FilterBits:                 info.FilterBits,
		FilterHashes:               info.FilterHashes,
		FilterBytes:                info.FilterBytes,
		FalsePositiveRate:          info.FalsePositiveRate,
		EstimatedFalsePositiveRate: info.EstimatedFalsePositiveRate,
		FillRatio:                  info.FillRatio,
		IndexKeys:                  info.IndexKeys,
		MaxDistance:                info.MaxDistance,
		Metric:                     info.Metric,
		SourceHash:                 info.SourceHash,
		BuiltAt:                    info.BuiltAt.Unix(),
		BuildMillis:                info.BuildDuration.Milliseconds(),
		FromSnapshot:               info.FromSnapshot,
	}})
}

// toResponseSuggestions ranks suggestions by position, reshaping each to the
// capitalization of input when keepCase is set
func toResponseSuggestions(suggestions []suggest.Suggestion, input string, keepCase bool) []Suggestion {
	pattern := utils.CaseLower
	if keepCase {
		pattern = utils.DetectCase(input)
	}
	ranks := utils.CreateRankList(len(suggestions))
	out := make([]Suggestion, len(suggestions))
	for i, sg := range suggestions {
		out[i] = Suggestion{
			Word:      pattern.Apply(sg.Term),
			Distance:  sg.Distance,
			Frequency: sg.Frequency,
			Rank:      ranks[i],
		}
	}
	return out
}
