package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grfbuild/internal/diag"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[package]\nname = \"brtrains\"\n")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Config.Package.Name != "brtrains" {
		t.Fatalf("name = %q", m.Config.Package.Name)
	}
	def := DefaultConfig()
	if m.Config.Paths != def.Paths {
		t.Fatalf("paths = %+v, want %+v", m.Config.Paths, def.Paths)
	}
	if len(m.Config.Required) != len(def.Required) {
		t.Fatalf("required = %d entries, want defaults", len(m.Config.Required))
	}
	if len(m.Config.Reconcile.Fields) != 4 || m.Config.Reconcile.Cap != 32767 {
		t.Fatalf("reconcile defaults lost: %+v", m.Config.Reconcile)
	}
	rules := m.Config.FragmentRules()
	if !rules.IsRequired("grf.pnml") || rules.Extension != ".pnml" {
		t.Fatalf("rules = %+v", rules)
	}
}

func TestLoadManifestOverrides(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[package]
name = "brtrains"

[paths]
src = "source"

[[required]]
file = "grf.pnml"
fatal = true

[chains]
"Evol_Header.pnml" = ["Evol_B.pnml", "Evol_C.pnml"]

[reconcile]
cap = 1000

[[reconcile.fields]]
column = "Speed"
property = "speed"
aggregate = "MIN"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Config.Paths.Src != "source" || m.Config.Paths.Gfx != "gfx" {
		t.Fatalf("paths = %+v", m.Config.Paths)
	}
	rules := m.Config.FragmentRules()
	if len(rules.Required) != 1 || rules.Required[0].Message == "" {
		t.Fatalf("required = %+v", rules.Required)
	}
	if got := strings.Join(rules.Chains["Evol_Header.pnml"], ","); got != "Evol_B.pnml,Evol_C.pnml" {
		t.Fatalf("chain = %s", got)
	}
	fields := m.Config.Reconcile.Fields
	if len(fields) != 1 || fields[0].Aggregate != "min" || m.Config.Reconcile.Cap != 1000 {
		t.Fatalf("reconcile = %+v", m.Config.Reconcile)
	}
	if got := m.Resolve("source"); got != filepath.Join(m.Root, "source") {
		t.Fatalf("Resolve = %s", got)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no package", "[paths]\nsrc = \"src\"\n", "missing [package]"},
		{"empty name", "[package]\nname = \" \"\n", "missing [package].name"},
		{"syntax", "[package\n", "failed to parse TOML"},
		{"unknown key", "[package]\nname = \"x\"\nversion = \"1\"\n", "unknown keys"},
		{"follower is trigger", `[package]
name = "x"
[chains]
"a.pnml" = ["b.pnml"]
"b.pnml" = ["c.pnml"]
`, "also a chain trigger"},
		{"follower in two chains", `[package]
name = "x"
[chains]
"a.pnml" = ["x.pnml"]
"b.pnml" = ["x.pnml"]
`, "appears in both"},
		{"required trigger", `[package]
name = "x"
[chains]
"grf.pnml" = ["x.pnml"]
`, "is a required fragment"},
		{"companion trigger", `[package]
name = "x"
[chains]
"GWR_Tenders.pnml" = ["F.pnml"]
`, "contains the companion token"},
		{"bad aggregate", `[package]
name = "x"
[[reconcile.fields]]
column = "A"
property = "a"
aggregate = "avg"
`, "aggregate must be max or min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, diag.ErrInvalidManifest) {
				t.Fatalf("error %v is not InvalidManifest", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	path := writeManifest(t, t.TempDir(), Template("brtrains"))
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	def := DefaultConfig()
	if m.Config.Package.Name != "brtrains" || len(m.Config.Required) != len(def.Required) {
		t.Fatalf("config = %+v", m.Config)
	}
	if m.Config.Required[0].Message != def.Required[0].Message {
		t.Fatalf("message = %q, want %q", m.Config.Required[0].Message, def.Required[0].Message)
	}
	want := StarterChains()
	if len(m.Config.Chains) != len(want) {
		t.Fatalf("chains = %v, want %d triggers", m.Config.Chains, len(want))
	}
	for trigger, followers := range want {
		got := m.Config.Chains[trigger]
		if strings.Join(got, ",") != strings.Join(followers, ",") {
			t.Fatalf("chain %q = %v, want %v", trigger, got, followers)
		}
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"brtrains\"\n")
	nested := filepath.Join(root, "src", "trains")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, found, err := Load(nested)
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if m.Root != root {
		t.Fatalf("root = %s, want %s", m.Root, root)
	}

	got, ok, err := FindProjectRoot(nested)
	if err != nil || !ok || got != root {
		t.Fatalf("FindProjectRoot = %q %v %v", got, ok, err)
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	m, found, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatalf("found manifest in empty temp dir")
	}
	if m.Path != "" || m.Root != dir || m.Config.Paths.Src != "src" {
		t.Fatalf("defaults = %+v", m)
	}
}

func TestDigest(t *testing.T) {
	a := HashBytes([]byte("grf {}"))
	if a.IsZero() || len(a.String()) != 64 {
		t.Fatalf("digest = %s", a)
	}
	if Combine(a) == Combine(a, a) {
		t.Fatalf("Combine ignores deps")
	}
	path := filepath.Join(t.TempDir(), "x.nml")
	if err := os.WriteFile(path, []byte("grf {}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := HashFile(path)
	if err != nil || b != a {
		t.Fatalf("HashFile = %s, %v; want %s", b, err, a)
	}
}
