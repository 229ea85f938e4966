// Package bloom implements the membership filter that fronts every lookup:
// a Bloom filter answering "possibly present" or "definitely absent".
//
// Sizing follows the textbook formulas for n expected items at false
// positive rate p:
//
//	m = ceil(-n·ln(p) / ln(2)²)   bits
//	k = round(m/n · ln(2))        probes, at least 1
//
// Probe positions use Kirsch-Mitzenmacher double hashing over a single
// 64-bit xxhash of the term: h1 = xxhash64(term), h2 = splitmix64(h1) | 1,
// and probe i sets bit (h1 + i·h2) mod m. Forcing h2 odd keeps the probe
// sequence from collapsing when m is a power of two.
package bloom

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidParams is returned when filter parameters are out of range.
var ErrInvalidParams = errors.New("invalid bloom filter parameters")

// Filter is a fixed-size Bloom filter. Add is for construction only; once a
// filter is shared with readers it must not be mutated.
type Filter struct {
	bits  []uint64
	m     uint64
	k     uint32
	n     uint64
	p     float64
	count uint64
}

// Params is the serializable form of a Filter.
type Params struct {
	M     uint64   `msgpack:"m"`
	K     uint32   `msgpack:"k"`
	N     uint64   `msgpack:"n"`
	P     float64  `msgpack:"p"`
	Count uint64   `msgpack:"count"`
	Bits  []uint64 `msgpack:"bits"`
}

// Size returns the bit count and probe count for n items at rate p.
// n below 1 is treated as 1.
func Size(n int, p float64) (m uint64, k uint32) {
	if n < 1 {
		n = 1
	}
	ln2 := math.Ln2
	mf := math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2))
	if mf < 1 {
		mf = 1
	}
	m = uint64(mf)
	kf := math.Round(float64(m) / float64(n) * ln2)
	if kf < 1 {
		kf = 1
	}
	return m, uint32(kf)
}

// New sizes a filter for n items at false positive rate p.
// p must lie in (0,1); use NewChecked to get an error instead of a panic.
func New(n int, p float64) *Filter {
	f, err := NewChecked(n, p)
	if err != nil {
		panic(err)
	}
	return f
}

// NewChecked is New with parameter validation.
func NewChecked(n int, p float64) (*Filter, error) {
	if !(p > 0 && p < 1) || math.IsNaN(p) {
		return nil, fmt.Errorf("%w: false positive rate %v not in (0,1)", ErrInvalidParams, p)
	}
	if n < 1 {
		n = 1
	}
	m, k := Size(n, p)
	return &Filter{
		bits: make([]uint64, (m+63)/64),
		m:    m,
		k:    k,
		n:    uint64(n),
		p:    p,
	}, nil
}

// FromParams rebuilds a filter from its serialized form.
func FromParams(p Params) (*Filter, error) {
	if p.M == 0 || p.K == 0 {
		return nil, fmt.Errorf("%w: m=%d k=%d", ErrInvalidParams, p.M, p.K)
	}
	if uint64(len(p.Bits)) != (p.M+63)/64 {
		return nil, fmt.Errorf("%w: %d words for %d bits", ErrInvalidParams, len(p.Bits), p.M)
	}
	return &Filter{bits: p.Bits, m: p.M, k: p.K, n: p.N, p: p.P, count: p.Count}, nil
}

// Params exports the filter state. The bit slice is shared, not copied.
func (f *Filter) Params() Params {
	return Params{M: f.m, K: f.k, N: f.n, P: f.p, Count: f.count, Bits: f.bits}
}

// splitmix64 finalizer, used to derive the second hash from the first.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func hashes(term string) (uint64, uint64) {
	h1 := xxhash.Sum64String(term)
	return h1, splitmix64(h1) | 1
}

// probe returns the bit position of the i-th probe. The sum wraps at 2^64
// before the reduction mod m.
func (f *Filter) probe(h1, h2 uint64, i uint32) uint64 {
	return (h1 + uint64(i)*h2) % f.m
}

// Add inserts term.
func (f *Filter) Add(term string) {
	h1, h2 := hashes(term)
	for i := uint32(0); i < f.k; i++ {
		pos := f.probe(h1, h2, i)
		f.bits[pos>>6] |= 1 << (pos & 63)
	}
	f.count++
}

// MayContain reports false only when term was never added.
func (f *Filter) MayContain(term string) bool {
	h1, h2 := hashes(term)
	for i := uint32(0); i < f.k; i++ {
		pos := f.probe(h1, h2, i)
		if f.bits[pos>>6]&(1<<(pos&63)) == 0 {
			return false
		}
	}
	return true
}

// M returns the number of bits.
func (f *Filter) M() uint64 { return f.m }

// K returns the number of probes per term.
func (f *Filter) K() uint32 { return f.k }

// N returns the expected item count the filter was sized for.
func (f *Filter) N() uint64 { return f.n }

// P returns the configured false positive rate.
func (f *Filter) P() float64 { return f.p }

// Count returns how many Add calls were made.
func (f *Filter) Count() uint64 { return f.count }

// FillRatio is the fraction of bits set.
func (f *Filter) FillRatio() float64 {
	set := 0
	for _, w := range f.bits {
		set += bits.OnesCount64(w)
	}
	return float64(set) / float64(f.m)
}

// EstimatedFalsePositiveRate is (1 - e^(-k·count/m))^k for the current count.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	k := float64(f.k)
	return math.Pow(1-math.Exp(-k*float64(f.count)/float64(f.m)), k)
}

// SizeBytes is the memory held by the bit array.
func (f *Filter) SizeBytes() int {
	return len(f.bits) * 8
}
