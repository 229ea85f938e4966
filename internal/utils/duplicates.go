package utils

// SeenSet tracks normalized words already emitted in a batch response.
// Not safe for concurrent use; one per request.
type SeenSet struct {
	seen map[string]struct{}
}

// NewSeenSet creates a set sized for n words
func NewSeenSet(n int) *SeenSet {
	return &SeenSet{seen: make(map[string]struct{}, n)}
}

// Add reports whether word was new and records it
func (s *SeenSet) Add(word string) bool {
	if _, ok := s.seen[word]; ok {
		return false
	}
	s.seen[word] = struct{}{}
	return true
}

// Len returns the number of distinct words seen
func (s *SeenSet) Len() int {
	return len(s.seen)
}
