package scores

import "sort"

// CategoryPolicy is the live per-category filter setting.
type CategoryPolicy struct {
	Enabled   bool
	Threshold float64
}

// Policy is the externally owned filter configuration evaluated against raw
// scores. Callers pass the policy by value at evaluation time; this package
// never caches it.
type Policy struct {
	Categories map[string]CategoryPolicy
	// Feedback enables the short-lived viewer notification naming the
	// categories that triggered a filter action.
	Feedback bool
}

// Enabled reports whether any category is enabled at all. When nothing is
// enabled the evaluator is unconditionally inactive.
func (p Policy) Enabled() bool {
	for _, cat := range p.Categories {
		if cat.Enabled {
			return true
		}
	}
	return false
}

// ShouldFilter reports whether the segment qualifies for filtering under the
// supplied policy: at least one category is enabled globally, and some raw
// score meets or exceeds the threshold of its (enabled) canonical category.
func ShouldFilter(seg Segment, policy Policy) bool {
	if !policy.Enabled() {
		return false
	}
	for rawKey, score := range seg.RawScores {
		canonical, ok := CanonicalCategory(rawKey)
		if !ok {
			continue
		}
		cat, ok := policy.Categories[canonical]
		if !ok || !cat.Enabled {
			continue
		}
		if score >= cat.Threshold {
			return true
		}
	}
	return false
}

// ActiveCategories returns the deduplicated canonical category names whose
// raw scores pass the policy check for this segment, sorted for determinism.
func ActiveCategories(seg Segment, policy Policy) []string {
	if !policy.Enabled() {
		return nil
	}
	seen := make(map[string]struct{})
	for rawKey, score := range seg.RawScores {
		canonical, ok := CanonicalCategory(rawKey)
		if !ok {
			continue
		}
		cat, ok := policy.Categories[canonical]
		if !ok || !cat.Enabled {
			continue
		}
		if score >= cat.Threshold {
			seen[canonical] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	active := make([]string, 0, len(seen))
	for name := range seen {
		active = append(active, name)
	}
	sort.Strings(active)
	return active
}

// PickWinner selects the segment a session should act on when several
// qualifying segments contain the position at once: earliest start, ties
// broken by smallest end. Returns false when the slice is empty.
func PickWinner(segments []Segment) (Segment, bool) {
	if len(segments) == 0 {
		return Segment{}, false
	}
	winner := segments[0]
	for _, seg := range segments[1:] {
		if seg.Start < winner.Start || (seg.Start == winner.Start && seg.End < winner.End) {
			winner = seg
		}
	}
	return winner, true
}
