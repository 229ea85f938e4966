// Copyright 2025 The WordCheck Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command wordcheck-mcp serves the spell checker as Model Context Protocol
// tools (check_word, suggest_words, filter_words) over SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/wordcheck/internal/app"
	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/config"
	"github.com/bastiangx/wordcheck/pkg/mcptool"
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0-beta"

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	baseURL := flag.String("baseurl", "", "Base URL for the server (e.g., http://localhost:8080)")
	configPath := flag.String("config", "", "Path to config file")
	dataDir := flag.String("data", "", "Directory containing the dictionary sources (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	flag.Parse()

	logger.Setup(*debugMode)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	appConfig, _, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	mcpServer := server.NewMCPServer(
		"WordCheck MCP Server",
		Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithInstructions("Spell checking tools: check a word, suggest corrections, or filter a list down to its misspelled words."),
	)
	defaultLang := ""
	if len(appConfig.Dict.Languages) > 0 {
		defaultLang = appConfig.Dict.Languages[0]
	}
	mcptool.New(wc.Dispatcher, defaultLang, appConfig.Spell.MaxSuggestions, appConfig.Server.MaxLimit).Register(mcpServer)

	baseURLValue := *baseURL
	if baseURLValue == "" {
		baseURLValue = fmt.Sprintf("http://localhost:%d", *port)
	}
	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(baseURLValue),
		server.WithSSEEndpoint("/"),
		server.WithMessageEndpoint("/messages"),
	)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: sseServer,
	}

	go func() {
		log.Infof("Starting MCP server on port %d (base URL %s)", *port, baseURLValue)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("Shutting down server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
	st := wc.Dispatcher.Stats()
	log.Infof("Served %d lookups (%d false positives)", st.Lookups, st.FalsePositives)
}
