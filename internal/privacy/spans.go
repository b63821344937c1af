package privacy

import "sort"

// Span is a half-open byte range [Start, End) in the source text
type Span struct {
	Start int
	End   int
}

// SpanSet holds sorted, pairwise disjoint spans
type SpanSet struct {
	spans []Span
}

// Claim inserts [start, end) unless it overlaps a span already in the set.
// Empty ranges are never claimed.
func (s *SpanSet) Claim(start, end int) bool {
	if start >= end {
		return false
	}

	// First span that ends after start is the only candidate for overlap.
	i := sort.Search(len(s.spans), func(i int) bool {
		return s.spans[i].End > start
	})
	if i < len(s.spans) && s.spans[i].Start < end {
		return false
	}

	s.spans = append(s.spans, Span{})
	copy(s.spans[i+1:], s.spans[i:])
	s.spans[i] = Span{Start: start, End: end}
	return true
}

// Overlaps reports whether [start, end) intersects any claimed span
func (s *SpanSet) Overlaps(start, end int) bool {
	i := sort.Search(len(s.spans), func(i int) bool {
		return s.spans[i].End > start
	})
	return i < len(s.spans) && s.spans[i].Start < end
}

// Len returns the number of claimed spans
func (s *SpanSet) Len() int {
	return len(s.spans)
}

// Spans returns a copy of the claimed spans in ascending order
func (s *SpanSet) Spans() []Span {
	out := make([]Span, len(s.spans))
	copy(out, s.spans)
	return out
}
