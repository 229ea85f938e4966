// Package app wires configuration, dictionaries and the user word store into
// a ready dispatcher. Both binaries start through here.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/config"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/bastiangx/wordcheck/pkg/userdict"
)

var appLog = logger.New("app")

// WatchDebounce is how long source changes settle before a reload.
const WatchDebounce = 500 * time.Millisecond

// App is a loaded engine and the resources it holds
type App struct {
	Config     *config.Config
	Dispatcher *suggest.Dispatcher
	DataDir    string
	Sources    map[string]dictionary.Source
	UserWords  userdict.Store
}

// Open resolves paths, connects the user word store and builds every
// configured language. Any language that fails to load fails Open.
// dataDir overrides the config's data_dir when non-empty.
func Open(ctx context.Context, cfg *config.Config, dataDir string, resolver *utils.PathResolver) (*App, error) {
	if dataDir == "" {
		dataDir = cfg.Dict.DataDir
	}
	if resolver != nil {
		resolved, err := resolver.GetDataDir(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data dir: %w", err)
		}
		dataDir = resolved
	}
	appLog.Debugf("Using data dir at: %s", dataDir)

	store, err := OpenUserWords(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	sources := cfg.DictSources(dataDir)
	for _, lang := range cfg.Dict.Languages {
		if _, ok := sources[lang]; !ok {
			store.Close()
			return nil, fmt.Errorf("%w for %q in %s", suggest.ErrNoSource, lang, dataDir)
		}
	}

	d := suggest.NewDispatcher(suggest.Options{
		Build:       cfg.BuildOptions(),
		Sources:     sources,
		UserWords:   store,
		SnapshotDir: cfg.SnapshotPath(dataDir),
	}, cfg.Dict.Languages...)

	start := time.Now()
	if err := d.LoadAll(ctx, cfg.Dict.BuildWorkers); err != nil {
		store.Close()
		return nil, err
	}
	appLog.Debugf("Loaded %d languages in %v", len(cfg.Dict.Languages), time.Since(start))

	return &App{
		Config:     cfg,
		Dispatcher: d,
		DataDir:    dataDir,
		Sources:    sources,
		UserWords:  store,
	}, nil
}

// OpenUserWords returns the Redis store when enabled, otherwise an in-memory one.
func OpenUserWords(ctx context.Context, cfg config.RedisConfig) (userdict.Store, error) {
	if !cfg.Enabled {
		return userdict.NewMemoryStore(), nil
	}
	store, err := userdict.NewRedisStore(ctx, userdict.RedisOptions{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: cfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("user word store: %w", err)
	}
	appLog.Debugf("User words stored in redis at %s", cfg.Addr)
	return store, nil
}

// Watch reloads a language whenever its source changes on disk, until ctx
// is done. Failed reloads are logged and the previous dictionary stays.
func (a *App) Watch(ctx context.Context) error {
	langs := make([]string, 0, len(a.Sources))
	for lang := range a.Sources {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	sources := make([]dictionary.Source, 0, len(langs))
	for _, lang := range langs {
		sources = append(sources, a.Sources[lang])
	}

	w, err := dictionary.NewWatcher(sources, WatchDebounce, func(lang string) {
		p, err := a.Dispatcher.Reload(ctx, lang)
		if err != nil {
			appLog.Errorf("Reload of %s failed, keeping previous dictionary: %v", lang, err)
			return
		}
		appLog.Infof("Reloaded %s: %d words", lang, p.Store().Len())
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Close releases the user word store.
func (a *App) Close() error {
	return a.UserWords.Close()
}
