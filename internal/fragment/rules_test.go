package fragment

import (
	"strings"
	"testing"
)

func TestDefaultRulesValid(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
}

func TestRulesValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Rules)
		want   string
	}{
		{"bad extension", func(r *Rules) { r.Extension = "pnml" }, "must start with a dot"},
		{"nested required", func(r *Rules) { r.Required = append(r.Required, Requirement{Name: "a/b.pnml"}) }, "not a path"},
		{"duplicate required", func(r *Rules) { r.Required = append(r.Required, Requirement{Name: "grf.pnml"}) }, "listed twice"},
		{"required trigger", func(r *Rules) { r.Chains["grf.pnml"] = []string{"x.pnml"} }, "is a required fragment"},
		{"required follower", func(r *Rules) { r.Chains["t.pnml"] = []string{"sounds.pnml"} }, "is a required fragment"},
		{"empty chain", func(r *Rules) { r.Chains["t.pnml"] = nil }, "no followers"},
		{"self follower", func(r *Rules) { r.Chains["t.pnml"] = []string{"t.pnml"} }, "lists itself"},
		{"follower is trigger", func(r *Rules) {
			r.Chains["a.pnml"] = []string{"b.pnml"}
			r.Chains["b.pnml"] = []string{"c.pnml"}
		}, "also a chain trigger"},
		{"follower in two chains", func(r *Rules) {
			r.Chains["a.pnml"] = []string{"x.pnml"}
			r.Chains["b.pnml"] = []string{"x.pnml"}
		}, "appears in both"},
		{"companion trigger", func(r *Rules) { r.Chains["GWR_Tenders.pnml"] = []string{"F.pnml"} }, "contains the companion token"},
		{"same tier dirs", func(r *Rules) { r.AppendDir = r.PriorityDir }, "must differ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := DefaultRules()
			tc.mutate(&r)
			err := r.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestRulesTriggersSorted(t *testing.T) {
	r := DefaultRules()
	r.Chains = map[string][]string{"b.pnml": {"x"}, "a.pnml": {"y"}}
	if got := joined(r.Triggers()); got != "a.pnml,b.pnml" {
		t.Fatalf("Triggers = %s", got)
	}
	if !r.IsTrigger("a.pnml") || r.IsTrigger("x") {
		t.Fatalf("IsTrigger mismatch")
	}
}
