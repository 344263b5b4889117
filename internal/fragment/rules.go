package fragment

import (
	"fmt"
	"sort"
	"strings"
)

// Requirement is one entry of the required fragment set.
type Requirement struct {
	// Name is the file name expected directly in the source root.
	Name string
	// Message is reported when the file is missing.
	Message string
	// Fatal aborts the build when the file is missing.
	Fatal bool
}

// Rules is the injected domain data that drives classification.
type Rules struct {
	// Extension selects fragment files, including the dot.
	Extension string
	// Required is emitted first, in order.
	Required []Requirement
	// Chains maps a trigger file name to followers emitted right after it.
	Chains map[string][]string
	// PriorityDir and AppendDir name the directories that select those tiers.
	PriorityDir string
	AppendDir   string
	// CompanionToken marks a companion file when it occurs in the stem.
	CompanionToken string
	// CompanionContext is the directory whose fragments pull in companions.
	CompanionContext string
}

// DefaultRules returns the rules used when no manifest overrides them.
func DefaultRules() Rules {
	return Rules{
		Extension:        ".pnml",
		Required:         DefaultRequired(),
		Chains:           map[string][]string{},
		PriorityDir:      "priority",
		AppendDir:        "append",
		CompanionToken:   "Tenders",
		CompanionContext: "Locomotive_Steam",
	}
}

// DefaultRequired is the required fragment set of a NewGRF train set.
func DefaultRequired() []Requirement {
	return []Requirement{
		{Name: "grf.pnml", Message: `"grf.pnml" not found. It should be in "src" and contain the grf block.`, Fatal: true},
		{Name: "railtypes.pnml", Message: `"railtypes.pnml" not found. It should be in "src" and contain the railtypetable block.`, Fatal: true},
		{Name: "sounds.pnml", Message: `"sounds.pnml" not found. Assuming no sounds are required`},
		{Name: "templates_shared.pnml", Message: `"templates_shared.pnml" not found. Assuming no templates are required`},
		{Name: "templates_trains.pnml", Message: `"templates_trains.pnml" not found. Assuming no templates are required`},
	}
}

// IsRequired reports whether name is a key of the required set.
func (r Rules) IsRequired(name string) bool {
	for _, req := range r.Required {
		if req.Name == name {
			return true
		}
	}
	return false
}

// IsTrigger reports whether name starts a chain.
func (r Rules) IsTrigger(name string) bool {
	_, ok := r.Chains[name]
	return ok
}

// Triggers returns chain trigger names in sorted order.
func (r Rules) Triggers() []string {
	out := make([]string, 0, len(r.Chains))
	for name := range r.Chains {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks the rules for contradictions that would make the output
// order ill-defined.
func (r Rules) Validate() error {
	if !strings.HasPrefix(r.Extension, ".") || len(r.Extension) < 2 {
		return fmt.Errorf("extension %q must start with a dot", r.Extension)
	}
	seen := make(map[string]struct{}, len(r.Required))
	for _, req := range r.Required {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return fmt.Errorf("required fragment with empty name")
		}
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("required fragment %q must be a file name, not a path", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("required fragment %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	owner := make(map[string]string)
	for _, trigger := range r.Triggers() {
		if r.IsRequired(trigger) {
			return fmt.Errorf("chain trigger %q is a required fragment", trigger)
		}
		// A companion is emitted after its locomotive, never from a tier,
		// so a chain hung on one would be lost.
		if r.CompanionToken != "" && strings.Contains(strings.TrimSuffix(trigger, r.Extension), r.CompanionToken) {
			return fmt.Errorf("chain trigger %q contains the companion token %q", trigger, r.CompanionToken)
		}
		followers := r.Chains[trigger]
		if len(followers) == 0 {
			return fmt.Errorf("chain %q has no followers", trigger)
		}
		for _, f := range followers {
			switch {
			case strings.TrimSpace(f) == "":
				return fmt.Errorf("chain %q has an empty follower", trigger)
			case f == trigger:
				return fmt.Errorf("chain %q lists itself as a follower", trigger)
			case r.IsTrigger(f):
				return fmt.Errorf("chain follower %q of %q is also a chain trigger", f, trigger)
			case r.IsRequired(f):
				return fmt.Errorf("chain follower %q of %q is a required fragment", f, trigger)
			}
			if prev, ok := owner[f]; ok {
				if prev == trigger {
					return fmt.Errorf("chain %q lists %q twice", trigger, f)
				}
				return fmt.Errorf("chain follower %q appears in both %q and %q", f, prev, trigger)
			}
			owner[f] = trigger
		}
	}
	if r.PriorityDir != "" && r.PriorityDir == r.AppendDir {
		return fmt.Errorf("priority and append directories must differ")
	}
	return nil
}
