package index

import (
	"sort"
	"testing"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariants(t *testing.T) {
	tests := []struct {
		name       string
		term       string
		maxDeletes int
		want       []string
	}{
		{"empty term", "", 2, []string{""}},
		{"zero deletes", "abc", 0, []string{"abc"}},
		{"one delete", "abc", 1, []string{"abc", "bc", "ac", "ab"}},
		{"two deletes", "abc", 2, []string{"abc", "bc", "ac", "ab", "c", "b", "a"}},
		{"shorter than D", "ab", 3, []string{"ab", "b", "a", ""}},
		{"repeated runes dedupe", "aa", 2, []string{"aa", "a", ""}},
		{"multibyte", "ಕನ", 1, []string{"ಕನ", "ನ", "ಕ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Variants(tt.term, tt.maxDeletes, 0)
			assert.False(t, truncated)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariantsBudget(t *testing.T) {
	got, truncated := Variants("abcdef", 2, 5)
	assert.True(t, truncated)
	assert.Len(t, got, 5)
	assert.Equal(t, "abcdef", got[0], "identity always comes first")

	// a budget larger than the variant count is not a truncation
	got, truncated = Variants("ab", 2, 100)
	assert.False(t, truncated)
	assert.Len(t, got, 4)
}

var smallDictionary = []dictionary.Entry{
	{Term: "hello", Frequency: 100},
	{Term: "help", Frequency: 80},
	{Term: "hell", Frequency: 60},
	{Term: "yellow", Frequency: 40},
	{Term: "the", Frequency: 500},
	{Term: "a", Frequency: 300},
	{Term: "ab", Frequency: 5},
}

func buildIndex(t *testing.T, opts Options) *Index {
	t.Helper()
	store, err := dictionary.NewStore(smallDictionary)
	require.NoError(t, err)
	return Build(store, opts)
}

func TestQueryFindsNeighbours(t *testing.T) {
	idx := buildIndex(t, Options{MaxDistance: 2})

	res := idx.Query("helo", 2)
	assert.False(t, res.Truncated)
	got := map[string]int{}
	for _, c := range res.Candidates {
		got[c.Entry.Term] = c.Distance
	}
	assert.Equal(t, map[string]int{"hello": 1, "help": 1, "hell": 1}, got)

	res = idx.Query("helo", 0)
	assert.Empty(t, res.Candidates)

	res = idx.Query("hello", 0)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 0, res.Candidates[0].Distance)
}

func TestQueryClampsToBuildDistance(t *testing.T) {
	idx := buildIndex(t, Options{MaxDistance: 1})
	for _, c := range idx.Query("hexxo", 5).Candidates {
		assert.LessOrEqual(t, c.Distance, 1)
	}
	assert.Empty(t, idx.Query("hexxo", 5).Candidates)
}

func TestQueryTransposition(t *testing.T) {
	lev := buildIndex(t, Options{MaxDistance: 1})
	assert.Empty(t, candidateTerms(lev.Query("teh", 1)))

	osa := buildIndex(t, Options{MaxDistance: 1, Metric: distance.OSA})
	assert.Equal(t, []string{"the"}, candidateTerms(osa.Query("teh", 1)))
}

func TestQueryTruncated(t *testing.T) {
	idx := buildIndex(t, Options{MaxDistance: 2, MaxVariants: 1})
	res := idx.Query("helo", 2)
	assert.True(t, res.Truncated)
	// only the identity variant was looked up, which "hello" reaches by one deletion
	assert.Equal(t, []string{"hello"}, candidateTerms(res))
}

// edits returns every string within one insertion, deletion or substitution
// of s over alphabet.
func edits(s string, alphabet []rune) []string {
	r := []rune(s)
	var out []string
	for i := 0; i <= len(r); i++ {
		for _, c := range alphabet {
			ins := append(append(append([]rune{}, r[:i]...), c), r[i:]...)
			out = append(out, string(ins))
		}
		if i < len(r) {
			out = append(out, string(append(append([]rune{}, r[:i]...), r[i+1:]...)))
			for _, c := range alphabet {
				sub := append([]rune{}, r...)
				sub[i] = c
				out = append(out, string(sub))
			}
		}
	}
	return out
}

func TestCompletenessWithinD(t *testing.T) {
	for _, metric := range []distance.Metric{distance.Levenshtein, distance.OSA} {
		idx := buildIndex(t, Options{MaxDistance: 2, Metric: metric})
		alphabet := []rune("ahelopz")
		for _, e := range smallDictionary {
			queries := map[string]struct{}{}
			for _, one := range edits(e.Term, alphabet) {
				queries[one] = struct{}{}
				for _, two := range edits(one, alphabet) {
					queries[two] = struct{}{}
				}
			}
			for q := range queries {
				want := metric.Strings(q, e.Term, -1)
				if want > 2 {
					continue
				}
				found := false
				for _, c := range idx.Query(q, 2).Candidates {
					if c.Entry.Term == e.Term {
						found = true
						assert.Equal(t, want, c.Distance)
					}
				}
				if !found {
					t.Fatalf("%s: query %q missed %q at distance %d", metric, q, e.Term, want)
				}
			}
		}
	}
}

func TestFromPostings(t *testing.T) {
	idx := buildIndex(t, Options{MaxDistance: 2})
	restored, err := FromPostings(idx.store, idx.Options(), idx.Postings())
	require.NoError(t, err)
	assert.Equal(t, idx.Keys(), restored.Keys())
	assert.ElementsMatch(t, candidateTerms(idx.Query("helo", 2)), candidateTerms(restored.Query("helo", 2)))

	_, err = FromPostings(idx.store, idx.Options(), map[string][]int32{"x": {99}})
	assert.Error(t, err)
}

func candidateTerms(res Result) []string {
	out := make([]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		out = append(out, c.Entry.Term)
	}
	sort.Strings(out)
	return out
}

func BenchmarkQuery(b *testing.B) {
	store, _ := dictionary.NewStore(smallDictionary)
	idx := Build(store, Options{MaxDistance: 2})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query("helo", 2)
	}
}
