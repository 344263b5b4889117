package fragment

import (
	"fmt"

	"grfbuild/internal/diag"
)

// ChainResolver locates chain followers by exact file name across the whole
// tree and records which names are protected by a chain.
type ChainResolver struct {
	byName  map[string][]*Fragment
	inChain map[string]string
}

// NewChainResolver indexes fragments by file name.
func NewChainResolver(all []*Fragment) *ChainResolver {
	byName := make(map[string][]*Fragment, len(all))
	for _, f := range all {
		byName[f.Name] = append(byName[f.Name], f)
	}
	return &ChainResolver{
		byName:  byName,
		inChain: make(map[string]string),
	}
}

// Resolve returns the fragments for followers in declared order. Every
// follower must match exactly one fragment in the tree.
func (r *ChainResolver) Resolve(trigger string, followers []string) ([]*Fragment, error) {
	chain := make([]*Fragment, 0, len(followers))
	for _, name := range followers {
		matches := r.byName[name]
		switch len(matches) {
		case 0:
			return nil, diag.Errorf(diag.UnresolvedChainMember, name, "no file named %q found (chain of %q)", name, trigger)
		case 1:
			r.inChain[name] = trigger
			chain = append(chain, matches[0])
		default:
			rels := make([]string, len(matches))
			for i, m := range matches {
				rels[i] = m.Rel
			}
			return nil, &diag.Error{
				Code:    diag.AmbiguousChainMember,
				Path:    name,
				Message: fmt.Sprintf("multiple files named %q found (chain of %q)", name, trigger),
				Matches: rels,
			}
		}
	}
	return chain, nil
}

// InChain reports whether name was claimed by a resolved chain.
func (r *ChainResolver) InChain(name string) bool {
	_, ok := r.inChain[name]
	return ok
}
