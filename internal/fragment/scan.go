package fragment

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// ScanResult is the classification state built by Scan and consumed by
// Aggregate.
type ScanResult struct {
	// Root is the scanned source directory.
	Root string
	// All lists every fragment in walk order.
	All []*Fragment
	// Companions holds companion files waiting for their primary.
	Companions *CompanionMatcher

	tiers    [tierCount][]*Fragment
	chains   map[string][]*Fragment
	resolver *ChainResolver
}

// Tier returns the fragments of t in emission order.
func (s *ScanResult) Tier(t Tier) []*Fragment {
	if t >= tierCount {
		return nil
	}
	return s.tiers[t]
}

// Chain returns the resolved followers of trigger.
func (s *ScanResult) Chain(trigger string) ([]*Fragment, bool) {
	chain, ok := s.chains[trigger]
	return chain, ok
}

// InChain reports whether the fragment name is emitted only through a chain.
func (s *ScanResult) InChain(name string) bool {
	return s.resolver.InChain(name)
}

// Scan walks root and classifies every fragment. Chain followers must
// resolve uniquely; any failure aborts the scan.
func Scan(root string, rules Rules, logger *log.Logger, bag *diag.Bag) (*ScanResult, error) {
	logger = logging.OrNop(logger)

	all, err := collectFragments(root, rules.Extension)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Root:       root,
		All:        all,
		Companions: NewCompanionMatcher(rules.CompanionContext),
		chains:     make(map[string][]*Fragment),
		resolver:   NewChainResolver(all),
	}

	// Chains are resolved before classification so a follower is excluded
	// from the tiers whatever its position in the walk.
	for _, f := range all {
		if rules.IsRequired(f.Name) || !rules.IsTrigger(f.Name) {
			continue
		}
		if _, done := res.chains[f.Name]; done {
			continue
		}
		chain, err := res.resolver.Resolve(f.Name, rules.Chains[f.Name])
		if err != nil {
			return nil, err
		}
		res.chains[f.Name] = chain
		logger.Debug("Resolved chain", "trigger", f.Rel, "followers", chainNames(chain))
	}

	for _, f := range all {
		if rules.IsRequired(f.Name) {
			continue
		}
		if res.resolver.InChain(f.Name) {
			logger.Debug("Chain member, emitted after its trigger", "file", f.Rel)
			continue
		}
		res.classify(f, rules, logger, bag)
	}

	for t := range res.tiers {
		sortFragments(res.tiers[t])
	}

	logListing(logger, all, rules)
	logger.Info("Finished finding fragment files", "count", len(all))
	return res, nil
}

func (s *ScanResult) classify(f *Fragment, rules Rules, logger *log.Logger, bag *diag.Bag) {
	var tier Tier
	switch {
	case len(f.Dirs()) == 0:
		tier = TierTopLevel
	case f.InDir(rules.PriorityDir):
		tier = TierPriority
	case f.InDir(rules.AppendDir):
		tier = TierAppend
	case rules.CompanionToken != "" && strings.Contains(f.Stem(), rules.CompanionToken):
		if prev := s.Companions.Register(f); prev != nil {
			logger.Warn("Companion replaced", "prefix", f.Prefix(), "dropped", prev.Rel, "kept", f.Rel)
			bag.Add(diag.Warning(diag.CompanionReplaced, prev.Rel, "replaced by "+f.Rel))
		}
		logger.Debug("Registered companion", "file", f.Rel, "prefix", f.Prefix())
		return
	default:
		tier = TierNormal
	}
	s.tiers[tier] = append(s.tiers[tier], f)
}

func collectFragments(root, ext string) ([]*Fragment, error) {
	var out []*Fragment
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ext {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, newFragment(p, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, diag.Wrap(diag.ReadFailed, root, err)
	}
	return out, nil
}

func sortFragments(list []*Fragment) {
	sort.SliceStable(list, func(i, j int) bool {
		return comparePaths(list[i].Rel, list[j].Rel) < 0
	})
}

// logListing reports the discovered fragments grouped by directory.
func logListing(logger *log.Logger, all []*Fragment, rules Rules) {
	var dirs []string
	byDir := make(map[string][]string)
	for _, f := range all {
		if rules.IsRequired(f.Name) {
			continue
		}
		dir := f.Dir()
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], f.Name)
	}
	for _, dir := range dirs {
		label := dir
		if label == "" {
			label = "."
		}
		logger.Debug("Found in directory", "dir", label, "files", byDir[dir])
	}
}

func chainNames(chain []*Fragment) []string {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	return names
}
