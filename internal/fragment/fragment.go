// Package fragment assembles .pnml source fragments into a single NML
// compilation unit.
//
// The pipeline is Validate -> Scan -> Aggregate -> Write. Scan classifies
// every fragment into one of four tiers, resolves declared chains and
// registers companion files; the resulting ScanResult holds all of that state
// and is handed to Aggregate, which emits blocks in a fixed, deterministic
// order.
package fragment

import (
	"path"
	"strings"
)

// Tier is an ordering bucket. Tiers are emitted in declaration order.
type Tier uint8

const (
	// TierTopLevel holds fragments directly in the source root.
	TierTopLevel Tier = iota
	// TierPriority holds fragments below a "priority" directory.
	TierPriority
	// TierNormal holds every other fragment.
	TierNormal
	// TierAppend holds fragments below an "append" directory.
	TierAppend

	tierCount
)

// Tiers returns all tiers in emission order.
func Tiers() []Tier {
	return []Tier{TierTopLevel, TierPriority, TierNormal, TierAppend}
}

func (t Tier) String() string {
	switch t {
	case TierTopLevel:
		return "Top level"
	case TierPriority:
		return "Priority"
	case TierNormal:
		return "Normal"
	case TierAppend:
		return "Append"
	}
	return "Unknown"
}

// Fragment is one source file discovered under the source root.
type Fragment struct {
	// Path is the location on disk.
	Path string
	// Rel is the slash-separated path relative to the source root.
	Rel string
	// Name is the base file name, e.g. BR43.pnml.
	Name string
}

func newFragment(diskPath, rel string) *Fragment {
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	return &Fragment{
		Path: diskPath,
		Rel:  rel,
		Name: path.Base(rel),
	}
}

// Stem is the file name without its extension.
func (f *Fragment) Stem() string {
	return strings.TrimSuffix(f.Name, path.Ext(f.Name))
}

// Dirs returns the directory segments between the source root and the file.
func (f *Fragment) Dirs() []string {
	dir := path.Dir(f.Rel)
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// Dir is the slash-separated directory relative to the source root ("" for the root).
func (f *Fragment) Dir() string {
	dir := path.Dir(f.Rel)
	if dir == "." {
		return ""
	}
	return dir
}

// Prefix is the part of the stem before the first underscore. It ties a
// companion file to its primary.
func (f *Fragment) Prefix() string {
	stem := f.Stem()
	if i := strings.IndexByte(stem, '_'); i >= 0 {
		return stem[:i]
	}
	return stem
}

// InDir reports whether any directory segment equals name.
func (f *Fragment) InDir(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range f.Dirs() {
		if seg == name {
			return true
		}
	}
	return false
}

// comparePaths orders slash-separated relative paths segment by segment.
// Paths are unique within a tree, so the order is total.
func comparePaths(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
