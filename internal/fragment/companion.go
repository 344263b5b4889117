package fragment

import (
	"sort"
)

// CompanionMatcher holds companion files (tenders) until the primary they
// belong to is emitted. At most one companion is pending per prefix.
type CompanionMatcher struct {
	context string
	pending map[string]*Fragment
}

// NewCompanionMatcher returns a matcher that splices companions in front of
// fragments located under a directory named context.
func NewCompanionMatcher(context string) *CompanionMatcher {
	return &CompanionMatcher{
		context: context,
		pending: make(map[string]*Fragment),
	}
}

// Register records f under its prefix. A previously pending companion with
// the same prefix is replaced and returned.
func (m *CompanionMatcher) Register(f *Fragment) (replaced *Fragment) {
	key := f.Prefix()
	replaced = m.pending[key]
	m.pending[key] = f
	return replaced
}

// Take returns and removes the companion that must precede primary, if any.
func (m *CompanionMatcher) Take(primary *Fragment) (*Fragment, bool) {
	if !primary.InDir(m.context) {
		return nil, false
	}
	key := primary.Prefix()
	companion, ok := m.pending[key]
	if !ok {
		return nil, false
	}
	delete(m.pending, key)
	return companion, true
}

// Pending returns the companions that were never matched, sorted by path.
func (m *CompanionMatcher) Pending() []*Fragment {
	out := make([]*Fragment, 0, len(m.pending))
	for _, f := range m.pending {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return comparePaths(out[i].Rel, out[j].Rel) < 0 })
	return out
}

// Len is the number of pending companions.
func (m *CompanionMatcher) Len() int { return len(m.pending) }
