// Copyright 2025 The WordCheck Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the spell checking server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

WordCheck answers "is this word spelled correctly?" and "what did the user
mean?" for several languages at once. Each language keeps a Bloom filter for
fast membership checks, a Patricia trie to confirm hits and a symmetric
deletion index to find corrections within a small edit distance. It can
operate as a MessagePack IPC server for integration with text editors, or as
a CLI application for testing and debugging.

# Usage

Start the server with default settings:

	wordcheck

Use a custom data directory and enable debug mode:

	wordcheck -data /path/to/dicts -d

Run in CLI mode for interactive testing:

	wordcheck -c -lang en -limit 10

The data directory holds one source per language: a "term frequency" text
file such as en.txt, a single dict_NNNN.bin chunk, or a directory of chunks.
Built dictionaries are cached as <lang>.wcs snapshots and reused while the
source and settings are unchanged.

# Configuration

Runtime configuration is read from a TOML file, created with defaults if it
doesn't exist:

	[spell]
	false_positive_rate = 0.001
	max_edit_distance = 2
	max_suggestions = 5
	transpositions = false

	[dict]
	data_dir = "data"
	snapshot_dir = "snapshots"
	languages = ["en"]
	watch = false

	[[dict.source]]
	lang = "en"
	path = "en.txt"

	[server]
	max_limit = 64
	max_term_len = 60
	enable_filter = true
	rate_limit = 0

	[redis]
	enabled = false
	addr = "localhost:6379"

WORDCHECK_* and REDIS_* environment variables override the file.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout, one map per
message. Requests are processed synchronously with microsecond timing
information included in responses.

	{"id": "req1", "action": "suggest", "lang": "en", "w": "helo", "l": 2}
	{"id": "req1", "s": [{"w": "hello", "d": 1, "f": 100, "r": 1}, {"w": "help", "d": 1, "f": 80, "r": 2}], "c": 2, "t": 41}

See package server for every action.

# Command Line Flags

	-config string
	    Path to config file (default: user config dir)
	-data string
	    Directory containing dictionary sources (default from config)
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-lang string
	    Language for CLI mode (default: first configured)
	-limit int
	    Number of suggestions to return in CLI mode
	-no-filter
	    Disable input filtering for debugging
	-watch
	    Reload dictionaries when their sources change
	-workers int
	    Parallel dictionary builds at startup

Logs always go to stderr; stdout belongs to the IPC protocol.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/wordcheck/internal/app"
	"github.com/bastiangx/wordcheck/internal/cli"
	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/config"
	"github.com/bastiangx/wordcheck/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

const (
	Version = "0.1.0-beta"
	AppName = "wordcheck"
	gh      = "https://github.com/bastiangx/wordcheck"
)

// sigHandler cancels the root context and exits on OS signals.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to config file")
	dataDir := flag.String("data", "", "Directory containing the dictionary sources (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	lang := flag.String("lang", "", "Language used in CLI mode (default: first configured)")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to return in CLI mode")
	noFilter := flag.Bool("no-filter", false, "Disable input filtering (DBG only) - checks numbers and symbols too")
	watch := flag.Bool("watch", false, "Reload dictionaries when their source files change")
	workers := flag.Int("workers", 0, "Parallel dictionary builds at startup (default from config)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	// Initialize path resolver for robust path handling
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))
	if *workers > 0 {
		appConfig.Dict.BuildWorkers = *workers
	}
	if *watch {
		appConfig.Dict.Watch = true
	}

	wc, err := app.Open(ctx, appConfig, *dataDir, pathResolver)
	if err != nil {
		log.Fatalf("Failed to load dictionaries: %v", err)
	}
	defer wc.Close()

	if appConfig.Dict.Watch {
		go func() {
			if err := wc.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("Dictionary watcher stopped: %v", err)
			}
		}()
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		opts := cli.Options{
			Lang:      *lang,
			Limit:     *limit,
			MaxLength: appConfig.Server.MaxTermLen,
			KeepCase:  appConfig.CLI.KeepCase,
			NoFilter:  *noFilter,
		}
		log.Debug("Input info:", "lang", opts.Lang, "limit", opts.Limit, "noFilter", opts.NoFilter)

		inputHandler := cli.NewInputHandler(wc.Dispatcher, opts)
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(wc.Dispatcher, appConfig)

	showStartupInfo(wc)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	vlog := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	vlog.SetStyles(styles)

	vlog.Print("")
	vlog.Print("[ WordCheck ] Multi-language spell checking, fast!")
	vlog.Print("", "version", Version)
	vlog.Print("")
	vlog.Print("use -h or --help to see available options")
	vlog.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(wc *app.App) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" WordCheck ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", wc.DataDir)
	for _, lang := range wc.Dispatcher.Languages() {
		info, err := wc.Dispatcher.Info(lang)
		if err != nil {
			log.Warnf("%s: %v", lang, err)
			continue
		}
		source := "built"
		if info.FromSnapshot {
			source = "snapshot"
		}
		log.Infof("%s: %s words, filter %s (%s)", lang,
			humanize.Comma(int64(info.Words)), humanize.Bytes(uint64(info.FilterBytes)), source)
	}
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
