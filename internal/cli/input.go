// Package cli handles cmd line input for checking words interactively, mainly for DBG and testing
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Options control the REPL's behavior
type Options struct {
	Lang      string
	Limit     int
	MaxLength int
	KeepCase  bool
	NoFilter  bool
}

// InputHandler reads lines from stdin and checks every word on them.
// Lines starting with ':' are commands, see help.
type InputHandler struct {
	checker suggest.Checker
	opts    Options
	reader  io.Reader
	out     *log.Logger
}

// NewInputHandler creates a handler over stdin, printing to stderr
func NewInputHandler(checker suggest.Checker, opts Options) *InputHandler {
	return NewInputHandlerWithIO(checker, opts, os.Stdin, os.Stderr)
}

// NewInputHandlerWithIO creates a handler over arbitrary streams
func NewInputHandlerWithIO(checker suggest.Checker, opts Options, r io.Reader, w io.Writer) *InputHandler {
	if opts.Limit < 1 {
		opts.Limit = suggest.DefaultMaxSuggestions
	}
	if opts.Lang == "" {
		if langs := checker.Languages(); len(langs) > 0 {
			opts.Lang = langs[0]
		}
	}
	return &InputHandler{
		checker: checker,
		opts:    opts,
		reader:  r,
		out: log.NewWithOptions(w, log.Options{
			ReportTimestamp: false,
			ReportCaller:    false,
			Level:           log.InfoLevel,
		}),
	}
}

// Start begins the interface loop until the input closes
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("WordCheck CLI [BETA]")
	h.out.Printf("type words and press Enter to check them, :help for commands (Ctrl+C to exit). lang=%s", h.opts.Lang)
	scanner := bufio.NewScanner(h.reader)

	for {
		h.out.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := h.handleCommand(ctx, line[1:]); quit {
				return nil
			}
			continue
		}
		for _, word := range strings.Fields(line) {
			h.handleWord(word)
		}
	}
}

// handleWord checks one word, listing corrections when it is unknown
func (h *InputHandler) handleWord(word string) {
	word = strings.Trim(word, ".,;:!?\"()[]{}")
	if word == "" {
		return
	}
	if h.opts.MaxLength > 0 && utf8.RuneCountInString(word) > h.opts.MaxLength {
		log.Errorf("Word too long: %s", word)
		return
	}
	if !h.opts.NoFilter && !utils.IsValidInput(utils.NormalizeTerm(word)) {
		log.Debugf("Skipping non-word token: '%s'", word)
		return
	}

	start := time.Now()
	res, err := h.checker.Lookup(word, h.opts.Lang, h.opts.Limit)
	if err != nil {
		log.Errorf("Lookup failed for '%s': %v", word, err)
		return
	}
	log.Debugf("Took [ %v ] for '%s' (false positive: %v)", time.Since(start), word, res.FalsePositive)

	if res.Known {
		h.out.Printf("\033[38;5;114m✓\033[0m %s", word)
		return
	}
	if len(res.Suggestions) == 0 {
		h.out.Printf("\033[38;5;203m✗\033[0m %s (no suggestions)", word)
		return
	}

	pattern := utils.CaseLower
	if h.opts.KeepCase {
		pattern = utils.DetectCase(word)
	}
	h.out.Printf("\033[38;5;203m✗\033[0m %s, did you mean:", word)
	for i, s := range res.Suggestions {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", pattern.Apply(s.Term))
		h.out.Printf("%2d. %-40s (dist: %d, freq: %8s)", i+1, clWord, s.Distance, humanize.Comma(s.Frequency))
	}
	if res.Truncated {
		h.out.Print("    (candidate search was cut short)")
	}
}

// handleCommand runs a ':' command. Returns true when the REPL should exit.
func (h *InputHandler) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	switch fields[0] {
	case "q", "quit", "exit":
		return true
	case "help", "h":
		h.printHelp()
	case "lang":
		if len(args) == 0 {
			h.out.Printf("lang=%s, available: %s", h.opts.Lang, strings.Join(h.checker.Languages(), ", "))
			return false
		}
		if _, err := h.checker.Info(args[0]); err != nil && errors.Is(err, suggest.ErrUnknownLanguage) {
			log.Errorf("Unknown language: %s", args[0])
			return false
		}
		h.opts.Lang = args[0]
		h.out.Printf("lang=%s", h.opts.Lang)
	case "limit":
		if len(args) != 1 {
			log.Error("usage: :limit <n>")
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			log.Errorf("Invalid limit: %s", args[0])
			return false
		}
		h.opts.Limit = n
	case "complete", "c":
		if len(args) != 1 {
			log.Error("usage: :complete <prefix>")
			return false
		}
		h.complete(args[0])
	case "add":
		h.addWord(ctx, args)
	case "rm", "remove":
		if len(args) != 1 {
			log.Error("usage: :rm <word>")
			return false
		}
		removed, err := h.checker.RemoveUserWord(ctx, h.opts.Lang, args[0])
		if err != nil {
			log.Errorf("Remove failed: %v", err)
			return false
		}
		if !removed {
			h.out.Printf("'%s' is not a user word", args[0])
			return false
		}
		h.out.Printf("removed '%s'", args[0])
	case "reload":
		p, err := h.checker.Reload(ctx, h.opts.Lang)
		if err != nil {
			log.Errorf("Reload failed: %v", err)
			return false
		}
		h.out.Printf("reloaded %s: %s words", h.opts.Lang, humanize.Comma(int64(p.Store().Len())))
	case "info":
		h.printInfo()
	case "stats":
		st := h.checker.Stats()
		h.out.Printf("lookups: %s, false positives: %s, rebuilds: %s, loaded: %d/%d",
			humanize.Comma(int64(st.Lookups)), humanize.Comma(int64(st.FalsePositives)),
			humanize.Comma(int64(st.Rebuilds)), st.Loaded, st.Registered)
	default:
		log.Errorf("Unknown command: %s (try :help)", fields[0])
	}
	return false
}

func (h *InputHandler) addWord(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		log.Error("usage: :add <word> [freq]")
		return
	}
	freq := int64(1)
	if len(args) == 2 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Errorf("Invalid frequency: %s", args[1])
			return
		}
		freq = n
	}
	total, err := h.checker.AddUserWord(ctx, h.opts.Lang, args[0], freq)
	if err != nil {
		log.Errorf("Add failed: %v", err)
		return
	}
	h.out.Printf("added '%s' (freq: %s)", args[0], humanize.Comma(total))
}

func (h *InputHandler) complete(prefix string) {
	entries, err := h.checker.Complete(prefix, h.opts.Lang, h.opts.Limit)
	if err != nil {
		log.Errorf("Complete failed: %v", err)
		return
	}
	if len(entries) == 0 {
		log.Warnf("No completions found for prefix: '%s'", prefix)
		return
	}
	h.out.Printf("Found %d completions for prefix '%s':", len(entries), prefix)
	for i, e := range entries {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", e.Term)
		h.out.Printf("%2d. %-40s (freq: %8s)", i+1, clWord, humanize.Comma(e.Frequency))
	}
}

func (h *InputHandler) printInfo() {
	info, err := h.checker.Info(h.opts.Lang)
	if err != nil {
		log.Errorf("Info failed: %v", err)
		return
	}
	h.out.Printf("lang: %s", info.Lang)
	h.out.Printf("words: %s (%s user)", humanize.Comma(int64(info.Words)), humanize.Comma(int64(info.UserWords)))
	h.out.Printf("filter: %s bits, %d hashes, %s, fill %.1f%%",
		humanize.Comma(int64(info.FilterBits)), info.FilterHashes, humanize.Bytes(uint64(info.FilterBytes)), info.FillRatio*100)
	h.out.Printf("fp rate: configured %g, estimated %.2g", info.FalsePositiveRate, info.EstimatedFalsePositiveRate)
	h.out.Printf("index: %s keys, max distance %d, %s", humanize.Comma(int64(info.IndexKeys)), info.MaxDistance, info.Metric)
	source := "built"
	if info.FromSnapshot {
		source = "snapshot"
	}
	h.out.Printf("%s %s in %v, hash %s", source, humanize.Time(info.BuiltAt), info.BuildDuration, info.SourceHash)
}

func (h *InputHandler) printHelp() {
	h.out.Print("commands:")
	h.out.Print("  :lang [code]        show or switch language")
	h.out.Print("  :limit <n>          number of suggestions")
	h.out.Print("  :complete <prefix>  list dictionary words by prefix")
	h.out.Print("  :add <word> [freq]  add a user word")
	h.out.Print("  :rm <word>          remove a user word")
	h.out.Print("  :reload             rebuild the current language from its source")
	h.out.Print("  :info               dictionary details")
	h.out.Print("  :stats              lookup counters")
	h.out.Print("  :quit               exit")
}
