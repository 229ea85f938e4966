package suggest

import (
	"fmt"
	"time"

	"github.com/bastiangx/wordcheck/pkg/bloom"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/index"
	"github.com/bastiangx/wordcheck/pkg/snapshot"
)

// expect describes the snapshot a build of base+user for lang under opts
// would produce.
func expect(lang string, base, user []dictionary.Entry, opts BuildOptions) (snapshot.Expect, error) {
	merged, err := dictionary.Merge(concat(base, user))
	if err != nil {
		return snapshot.Expect{}, err
	}
	return snapshot.Expect{
		Language:          lang,
		SourceHash:        dictionary.SourceHash(merged),
		MaxDistance:       opts.Index.MaxDistance,
		Metric:            opts.Index.Metric.String(),
		FalsePositiveRate: opts.FalsePositiveRate,
	}, nil
}

// Snapshot converts the profile to its persisted form. The returned file
// shares the profile's slices and maps.
func (p *Profile) Snapshot() *snapshot.File {
	return &snapshot.File{
		Format:            snapshot.FormatVersion,
		Language:          p.lang,
		SourceHash:        p.sourceHash,
		MaxDistance:       p.opts.Index.MaxDistance,
		Metric:            p.opts.Index.Metric.String(),
		FalsePositiveRate: p.opts.FalsePositiveRate,
		BuiltAt:           p.builtAt,
		Filter:            p.filter.Params(),
		Entries:           p.store.Entries(),
		UserWords:         len(p.user),
		Postings:          p.index.Postings(),
	}
}

// ProfileFromSnapshot restores the profile for lang, returning
// snapshot.ErrStale when the file was built for another language or does not
// match base+user under opts.
func ProfileFromSnapshot(lang string, f *snapshot.File, base, user []dictionary.Entry, opts BuildOptions) (*Profile, error) {
	start := time.Now()
	want, err := expect(lang, base, user, opts)
	if err != nil {
		return nil, err
	}
	if err := f.Check(want); err != nil {
		return nil, err
	}

	store, err := dictionary.FromSorted(f.Entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)
	}
	if got := dictionary.SourceHash(store.Entries()); got != f.SourceHash {
		return nil, fmt.Errorf("%w: entries hash %s, header says %s", snapshot.ErrCorrupt, got, f.SourceHash)
	}
	filter, err := bloom.FromParams(f.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)
	}
	idx, err := index.FromPostings(store, opts.Index, f.Postings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)
	}

	return &Profile{
		lang:         lang,
		store:        store,
		filter:       filter,
		index:        idx,
		sourceHash:   f.SourceHash,
		opts:         opts,
		base:         base,
		user:         user,
		builtAt:      f.BuiltAt,
		buildTook:    time.Since(start),
		fromSnapshot: true,
	}, nil
}
