package suggest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/snapshot"
	"github.com/bastiangx/wordcheck/pkg/userdict"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownLanguage is returned for language codes that were never registered.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrNotLoaded is returned for registered languages with no built profile yet.
	ErrNotLoaded = errors.New("language not loaded")
	// ErrNoSource is returned when reloading a language without a configured source.
	ErrNoSource = errors.New("no dictionary source configured")
	// ErrInvalidWord is returned when a user word normalizes to nothing.
	ErrInvalidWord = errors.New("invalid word")
)

var dispatchLog = logger.New("dispatch")

var _ Checker = (*Dispatcher)(nil)

// Options configure a Dispatcher.
type Options struct {
	Build BuildOptions
	// Sources maps language codes to their dictionary files, used by
	// Load and Reload.
	Sources map[string]dictionary.Source
	// UserWords persists user-added words. Nil means in-memory.
	UserWords userdict.Store
	// SnapshotDir enables persisted profiles when set.
	SnapshotDir string
}

// Stats are process-wide counters, not dictionary state.
type Stats struct {
	Lookups        uint64
	FalsePositives uint64
	Rebuilds       uint64
	Loaded         int
	Registered     int
}

// Info describes a published profile.
type Info struct {
	Lang                       string
	Words                      int
	UserWords                  int
	FilterBits                 uint64
	FilterHashes               uint32
	FilterBytes                int
	FalsePositiveRate          float64
	EstimatedFalsePositiveRate float64
	FillRatio                  float64
	IndexKeys                  int
	MaxDistance                int
	Metric                     string
	MaxSuggestions             int
	SourceHash                 string
	BuiltAt                    time.Time
	BuildDuration              time.Duration
	FromSnapshot               bool
}

// Dispatcher is the registry of language profiles. The set of languages is
// fixed at construction; each slot is an atomic pointer so readers never
// lock and a rebuild publishes with a single store.
type Dispatcher struct {
	opts     Options
	profiles map[string]*atomic.Pointer[Profile]

	// per-language build locks, so concurrent user-word edits are not lost
	// while different languages still build in parallel
	buildMu map[string]*sync.Mutex

	lookups        atomic.Uint64
	falsePositives atomic.Uint64
	rebuilds       atomic.Uint64
}

// NewDispatcher registers languages. Profiles are published later by Load,
// LoadDictionary or Publish.
func NewDispatcher(opts Options, languages ...string) *Dispatcher {
	if opts.UserWords == nil {
		opts.UserWords = userdict.NewMemoryStore()
	}
	if opts.Build.MaxSuggestions <= 0 {
		opts.Build.MaxSuggestions = DefaultMaxSuggestions
	}
	d := &Dispatcher{
		opts:     opts,
		profiles: make(map[string]*atomic.Pointer[Profile], len(languages)),
		buildMu:  make(map[string]*sync.Mutex, len(languages)),
	}
	for _, lang := range languages {
		d.profiles[lang] = new(atomic.Pointer[Profile])
		d.buildMu[lang] = new(sync.Mutex)
	}
	return d
}

// Resolve returns the current profile for lang.
func (d *Dispatcher) Resolve(lang string) (*Profile, error) {
	slot, ok := d.profiles[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	p := slot.Load()
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotLoaded, lang)
	}
	return p, nil
}

// Publish swaps in p for its language.
func (d *Dispatcher) Publish(p *Profile) error {
	slot, ok := d.profiles[p.lang]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, p.lang)
	}
	slot.Store(p)
	d.rebuilds.Add(1)
	dispatchLog.Debugf("Published %s: %d words (snapshot=%v)", p.lang, p.store.Len(), p.fromSnapshot)
	return nil
}

// LoadDictionary builds a profile for lang from entries, keeping any user
// words the current profile has, and publishes it. On error the current
// profile stays in place.
func (d *Dispatcher) LoadDictionary(lang string, entries []dictionary.Entry) (*Profile, error) {
	if _, ok := d.profiles[lang]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	d.buildMu[lang].Lock()
	defer d.buildMu[lang].Unlock()

	var user []dictionary.Entry
	if current := d.profiles[lang].Load(); current != nil {
		user = current.user
	}
	p, err := BuildProfile(lang, entries, user, d.opts.Build)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", lang, err)
	}
	d.persist(p)
	return p, d.Publish(p)
}

// CheckWord reports whether term is known in lang.
func (d *Dispatcher) CheckWord(term, lang string) (bool, error) {
	res, err := d.Lookup(term, lang, 0)
	if err != nil {
		return false, err
	}
	return res.Known, nil
}

// Lookup checks term and ranks corrections when it is unknown.
func (d *Dispatcher) Lookup(term, lang string, max int) (Lookup, error) {
	p, err := d.Resolve(lang)
	if err != nil {
		return Lookup{}, err
	}
	d.lookups.Add(1)
	res := p.Lookup(term, max)
	if res.FalsePositive {
		d.falsePositives.Add(1)
	}
	return res, nil
}

// Suggest ranks up to max corrections for term in lang.
func (d *Dispatcher) Suggest(term, lang string, max int) ([]Suggestion, error) {
	p, err := d.Resolve(lang)
	if err != nil {
		return nil, err
	}
	d.lookups.Add(1)
	return p.Suggest(term, max), nil
}

// FilterUnknown returns the unknown words of a batch in input order, each
// once. Tokens that are not words (numbers, punctuation) are skipped.
func (d *Dispatcher) FilterUnknown(words []string, lang string) ([]string, error) {
	p, err := d.Resolve(lang)
	if err != nil {
		return nil, err
	}
	seen := utils.NewSeenSet(len(words))
	var unknown []string
	for _, w := range words {
		term := utils.NormalizeTerm(w)
		if !utils.IsValidInput(term) || !seen.Add(term) {
			continue
		}
		d.lookups.Add(1)
		known, fp := p.contains(term)
		if fp {
			d.falsePositives.Add(1)
		}
		if !known {
			unknown = append(unknown, w)
		}
	}
	return unknown, nil
}

// Complete lists up to limit terms of lang starting with prefix.
func (d *Dispatcher) Complete(prefix, lang string, limit int) ([]dictionary.Entry, error) {
	p, err := d.Resolve(lang)
	if err != nil {
		return nil, err
	}
	prefix = utils.NormalizeTerm(prefix)
	if prefix == "" {
		return nil, nil
	}
	return p.store.Complete(prefix, limit), nil
}

// Languages returns the registered codes, sorted.
func (d *Dispatcher) Languages() []string {
	langs := make([]string, 0, len(d.profiles))
	for lang := range d.profiles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Stats returns the counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Lookups:        d.lookups.Load(),
		FalsePositives: d.falsePositives.Load(),
		Rebuilds:       d.rebuilds.Load(),
		Registered:     len(d.profiles),
	}
	for _, slot := range d.profiles {
		if slot.Load() != nil {
			s.Loaded++
		}
	}
	return s
}

// Info describes lang's current profile.
func (d *Dispatcher) Info(lang string) (Info, error) {
	p, err := d.Resolve(lang)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Lang:                       p.lang,
		Words:                      p.store.Len(),
		UserWords:                  len(p.user),
		FilterBits:                 p.filter.M(),
		FilterHashes:               p.filter.K(),
		FilterBytes:                p.filter.SizeBytes(),
		FalsePositiveRate:          p.filter.P(),
		EstimatedFalsePositiveRate: p.filter.EstimatedFalsePositiveRate(),
		FillRatio:                  p.filter.FillRatio(),
		IndexKeys:                  p.index.Len(),
		MaxDistance:                p.opts.Index.MaxDistance,
		Metric:                     p.opts.Index.Metric.String(),
		MaxSuggestions:             p.opts.MaxSuggestions,
		SourceHash:                 p.sourceHash,
		BuiltAt:                    p.builtAt,
		BuildDuration:              p.buildTook,
		FromSnapshot:               p.fromSnapshot,
	}, nil
}

// AddUserWord stores word (incrementing it if present), rebuilds lang and
// publishes. Returns the word's new user frequency.
func (d *Dispatcher) AddUserWord(ctx context.Context, lang, word string, freq int64) (int64, error) {
	current, err := d.Resolve(lang)
	if err != nil {
		return 0, err
	}
	term := utils.NormalizeTerm(word)
	if term == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}

	d.buildMu[lang].Lock()
	defer d.buildMu[lang].Unlock()

	prior, err := d.userFrequency(ctx, lang, term)
	if err != nil {
		return 0, err
	}
	total, err := d.opts.UserWords.Add(ctx, lang, term, freq)
	if err != nil {
		return 0, err
	}
	if err := d.rebuildUser(ctx, lang, current); err != nil {
		if rerr := d.restoreUserWord(ctx, lang, term, prior); rerr != nil {
			dispatchLog.Errorf("Could not restore user word %q for %s: %v", term, lang, rerr)
		}
		return 0, err
	}
	return total, nil
}

// userFrequency returns term's stored user frequency, 0 when absent.
func (d *Dispatcher) userFrequency(ctx context.Context, lang, term string) (int64, error) {
	user, err := d.opts.UserWords.List(ctx, lang)
	if err != nil {
		return 0, err
	}
	i := sort.Search(len(user), func(i int) bool { return user[i].Term >= term })
	if i < len(user) && user[i].Term == term {
		return user[i].Frequency, nil
	}
	return 0, nil
}

// restoreUserWord puts term back to the frequency it had before a failed add.
func (d *Dispatcher) restoreUserWord(ctx context.Context, lang, term string, prior int64) error {
	if _, err := d.opts.UserWords.Remove(ctx, lang, term); err != nil {
		return err
	}
	if prior < 1 {
		return nil
	}
	_, err := d.opts.UserWords.Add(ctx, lang, term, prior)
	return err
}

// RemoveUserWord deletes a user word and rebuilds lang when it existed.
// Words from the source dictionary are not affected.
func (d *Dispatcher) RemoveUserWord(ctx context.Context, lang, word string) (bool, error) {
	current, err := d.Resolve(lang)
	if err != nil {
		return false, err
	}
	term := utils.NormalizeTerm(word)
	if term == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}

	d.buildMu[lang].Lock()
	defer d.buildMu[lang].Unlock()

	removed, err := d.opts.UserWords.Remove(ctx, lang, term)
	if err != nil || !removed {
		return removed, err
	}
	return true, d.rebuildUser(ctx, lang, current)
}

// rebuildUser rebuilds from the published profile's base entries and the
// stored user words. Caller holds the language's build lock.
func (d *Dispatcher) rebuildUser(ctx context.Context, lang string, current *Profile) error {
	// a reload may have published since Resolve
	if latest := d.profiles[lang].Load(); latest != nil {
		current = latest
	}
	user, err := d.opts.UserWords.List(ctx, lang)
	if err != nil {
		return err
	}
	p, err := BuildProfile(lang, current.base, user, d.opts.Build)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", lang, err)
	}
	d.persist(p)
	return d.Publish(p)
}

// Reload re-reads lang's source and user words, then publishes the result.
// A valid snapshot is reused; on any error the current profile is kept.
func (d *Dispatcher) Reload(ctx context.Context, lang string) (*Profile, error) {
	if _, ok := d.profiles[lang]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	src, ok := d.opts.Sources[lang]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoSource, lang)
	}
	src.Lang = lang

	d.buildMu[lang].Lock()
	defer d.buildMu[lang].Unlock()

	p, err := d.loadProfile(ctx, src)
	if err != nil {
		return nil, err
	}
	return p, d.Publish(p)
}

// LoadAll loads every language with a configured source, at most workers at
// a time. Any failure is returned and nothing further is published for
// that language.
func (d *Dispatcher) LoadAll(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, lang := range d.Languages() {
		if _, ok := d.opts.Sources[lang]; !ok {
			dispatchLog.Warnf("No dictionary source for %s, it stays unloaded", lang)
			continue
		}
		g.Go(func() error {
			start := time.Now()
			p, err := d.Reload(ctx, lang)
			if err != nil {
				return err
			}
			dispatchLog.Infof("Loaded %s: %d words in %v (snapshot=%v)", lang, p.store.Len(), time.Since(start), p.fromSnapshot)
			return nil
		})
	}
	return g.Wait()
}

// loadProfile reads the source and user words, then restores the snapshot
// when it matches or builds from scratch. Caller holds the language's build lock.
func (d *Dispatcher) loadProfile(ctx context.Context, src dictionary.Source) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := src.Load()
	if err != nil {
		return nil, err
	}
	user, err := d.opts.UserWords.List(ctx, src.Lang)
	if err != nil {
		return nil, err
	}

	if d.opts.SnapshotDir != "" {
		p, err := d.restore(src.Lang, base, user)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			dispatchLog.Infof("Rebuilding %s: %v", src.Lang, err)
		}
	}

	p, err := BuildProfile(src.Lang, base, user, d.opts.Build)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", src.Lang, err)
	}
	d.persist(p)
	return p, nil
}

func (d *Dispatcher) restore(lang string, base, user []dictionary.Entry) (*Profile, error) {
	f, err := snapshot.Read(snapshot.Path(d.opts.SnapshotDir, lang))
	if err != nil {
		return nil, err
	}
	return ProfileFromSnapshot(lang, f, base, user, d.opts.Build)
}

// persist writes p's snapshot. Failures only cost the next startup a rebuild.
func (d *Dispatcher) persist(p *Profile) {
	if d.opts.SnapshotDir == "" {
		return
	}
	if err := snapshot.Write(snapshot.Path(d.opts.SnapshotDir, p.lang), p.Snapshot()); err != nil {
		dispatchLog.Warnf("Could not save snapshot for %s: %v", p.lang, err)
	}
}
