package suggest

import (
	"sort"
	"time"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/bloom"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/index"
)

const (
	DefaultFalsePositiveRate = 0.001
	DefaultMaxSuggestions    = 5
)

// BuildOptions are the parameters a profile is built with.
type BuildOptions struct {
	FalsePositiveRate float64
	Index             index.Options
	// MaxSuggestions is K, used when a request does not ask for a count.
	MaxSuggestions int
}

// DefaultBuildOptions returns the stock parameters.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		FalsePositiveRate: DefaultFalsePositiveRate,
		Index:             index.Options{MaxDistance: index.DefaultMaxDistance},
		MaxSuggestions:    DefaultMaxSuggestions,
	}
}

// Suggestion is one ranked correction.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int64
}

// Lookup is the full outcome of checking one term.
type Lookup struct {
	// Term is the normalized query.
	Term  string
	Known bool
	// FalsePositive is set when the filter claimed the term but the
	// dictionary did not confirm it. It never changes Known.
	FalsePositive bool
	Suggestions   []Suggestion
	// Truncated means the variant budget cut candidate generation short.
	Truncated bool
}

// Profile bundles everything needed to answer lookups for one language.
// It is immutable once built; rebuilding produces a new Profile.
type Profile struct {
	lang       string
	store      *dictionary.Store
	filter     *bloom.Filter
	index      *index.Index
	sourceHash string
	opts       BuildOptions

	// base and user are kept so user-word edits can rebuild without
	// re-reading the source
	base []dictionary.Entry
	user []dictionary.Entry

	builtAt      time.Time
	buildTook    time.Duration
	fromSnapshot bool
}

// BuildProfile merges base and user entries and builds the filter and index.
func BuildProfile(lang string, base, user []dictionary.Entry, opts BuildOptions) (*Profile, error) {
	start := time.Now()
	merged, err := dictionary.Merge(concat(base, user))
	if err != nil {
		return nil, err
	}
	store, err := dictionary.FromSorted(merged)
	if err != nil {
		return nil, err
	}

	filter, err := bloom.NewChecked(store.Len(), opts.FalsePositiveRate)
	if err != nil {
		return nil, err
	}
	for _, e := range store.Entries() {
		filter.Add(e.Term)
	}

	return &Profile{
		lang:       lang,
		store:      store,
		filter:     filter,
		index:      index.Build(store, opts.Index),
		sourceHash: dictionary.SourceHash(merged),
		opts:       opts,
		base:       base,
		user:       user,
		builtAt:    time.Now(),
		buildTook:  time.Since(start),
	}, nil
}

func concat(a, b []dictionary.Entry) []dictionary.Entry {
	out := make([]dictionary.Entry, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

// Lang returns the language code.
func (p *Profile) Lang() string { return p.lang }

// Store returns the backing dictionary.
func (p *Profile) Store() *dictionary.Store { return p.store }

// SourceHash fingerprints the merged entries the profile was built from.
func (p *Profile) SourceHash() string { return p.sourceHash }

// Options returns the build options.
func (p *Profile) Options() BuildOptions { return p.opts }

// Base returns the source entries, without user words.
func (p *Profile) Base() []dictionary.Entry { return p.base }

// User returns the user-added entries.
func (p *Profile) User() []dictionary.Entry { return p.user }

// contains is the membership check: the filter answers "definitely absent",
// the store confirms "present".
func (p *Profile) contains(term string) (known, falsePositive bool) {
	if !p.filter.MayContain(term) {
		return false, false
	}
	if p.store.Contains(term) {
		return true, false
	}
	return false, true
}

// Lookup checks term and, when it is unknown, ranks up to max corrections.
// max <= 0 uses the profile's MaxSuggestions.
func (p *Profile) Lookup(term string, max int) Lookup {
	res := Lookup{Term: utils.NormalizeTerm(term)}
	if res.Term == "" {
		return res
	}
	res.Known, res.FalsePositive = p.contains(res.Term)
	if res.Known {
		return res
	}
	res.Suggestions, res.Truncated = p.candidates(res.Term, max)
	return res
}

// Check reports whether term is in the dictionary.
func (p *Profile) Check(term string) bool {
	term = utils.NormalizeTerm(term)
	if term == "" {
		return false
	}
	known, _ := p.contains(term)
	return known
}

// Suggest ranks up to max dictionary terms within the build distance of
// term. Unlike Lookup it does not stop at a known term, which is returned
// first at distance 0.
func (p *Profile) Suggest(term string, max int) []Suggestion {
	term = utils.NormalizeTerm(term)
	if term == "" {
		return nil
	}
	suggestions, _ := p.candidates(term, max)
	return suggestions
}

func (p *Profile) candidates(term string, max int) ([]Suggestion, bool) {
	if max <= 0 {
		max = p.opts.MaxSuggestions
	}
	res := p.index.Query(term, p.opts.Index.MaxDistance)
	return Rank(res.Candidates, max), res.Truncated
}

// Rank orders candidates by distance, then frequency descending, then term,
// and keeps the first max. max <= 0 keeps all.
func Rank(candidates []index.Candidate, max int) []Suggestion {
	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = Suggestion{Term: c.Entry.Term, Distance: c.Distance, Frequency: c.Entry.Frequency}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Term < b.Term
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
