package index

// Variants returns the distinct strings obtained from term by deleting up to
// maxDeletes runes, the identity included. The empty term yields {""}.
// Generation is breadth first, so under a budget the closest variants are
// kept; budget <= 0 means unlimited. truncated reports whether the budget
// stopped generation early.
func Variants(term string, maxDeletes, budget int) (variants []string, truncated bool) {
	seen := map[string]struct{}{term: {}}
	variants = []string{term}
	if budget > 0 && len(variants) >= budget {
		return variants, maxDeletes > 0 && term != ""
	}

	level := [][]rune{[]rune(term)}
	for depth := 0; depth < maxDeletes; depth++ {
		var next [][]rune
		for _, runes := range level {
			if len(runes) == 0 {
				continue
			}
			for i := range runes {
				del := make([]rune, 0, len(runes)-1)
				del = append(del, runes[:i]...)
				del = append(del, runes[i+1:]...)
				s := string(del)
				if _, ok := seen[s]; ok {
					continue
				}
				if budget > 0 && len(variants) >= budget {
					return variants, true
				}
				seen[s] = struct{}{}
				variants = append(variants, s)
				next = append(next, del)
			}
		}
		if len(next) == 0 {
			break
		}
		level = next
	}
	return variants, false
}
