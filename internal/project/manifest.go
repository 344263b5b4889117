package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"grfbuild/internal/diag"
	"grfbuild/internal/fragment"
)

// ManifestName is the file that marks a grfbuild project root.
const ManifestName = "grfbuild.toml"

// Manifest is a loaded project manifest.
type Manifest struct {
	// Path is the manifest file, empty when the defaults are in use.
	Path string
	// Root is the directory relative paths are resolved against.
	Root   string
	Config Config
}

// Config mirrors grfbuild.toml.
type Config struct {
	Package    PackageConfig       `toml:"package"`
	Paths      PathsConfig         `toml:"paths"`
	Fragments  FragmentsConfig     `toml:"fragments"`
	Required   []RequiredConfig    `toml:"required"`
	Chains     map[string][]string `toml:"chains"`
	Companions CompanionsConfig    `toml:"companions"`
	Tiers      TiersConfig         `toml:"tiers"`
	Reconcile  ReconcileConfig     `toml:"reconcile"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type PathsConfig struct {
	Src   string `toml:"src"`
	Lang  string `toml:"lang"`
	Gfx   string `toml:"gfx"`
	Build string `toml:"build"`
}

type FragmentsConfig struct {
	Extension string `toml:"extension"`
}

type RequiredConfig struct {
	File    string `toml:"file"`
	Message string `toml:"message"`
	Fatal   bool   `toml:"fatal"`
}

type CompanionsConfig struct {
	Token   string `toml:"token"`
	Context string `toml:"context"`
}

type TiersConfig struct {
	Priority string `toml:"priority"`
	Append   string `toml:"append"`
}

// ReconcileConfig drives the check command.
type ReconcileConfig struct {
	CSV       string         `toml:"csv"`
	IDColumn  string         `toml:"id_column"`
	BackupDir string         `toml:"backup_dir"`
	Cap       float64        `toml:"cap"`
	Fields    []FieldMapping `toml:"fields"`
}

// FieldMapping ties a spreadsheet column to a fragment property.
type FieldMapping struct {
	Column    string `toml:"column"`
	Property  string `toml:"property"`
	Aggregate string `toml:"aggregate"`
}

// DefaultConfig is what a project without a manifest builds with.
func DefaultConfig() Config {
	rules := fragment.DefaultRules()
	required := make([]RequiredConfig, len(rules.Required))
	for i, req := range rules.Required {
		required[i] = RequiredConfig{File: req.Name, Message: req.Message, Fatal: req.Fatal}
	}
	return Config{
		Paths: PathsConfig{
			Src:   "src",
			Lang:  "lang",
			Gfx:   "gfx",
			Build: "build",
		},
		Fragments:  FragmentsConfig{Extension: rules.Extension},
		Required:   required,
		Chains:     map[string][]string{},
		Companions: CompanionsConfig{Token: rules.CompanionToken, Context: rules.CompanionContext},
		Tiers:      TiersConfig{Priority: rules.PriorityDir, Append: rules.AppendDir},
		Reconcile:  DefaultReconcile(),
	}
}

// DefaultReconcile is the spreadsheet layout of the BR train set.
func DefaultReconcile() ReconcileConfig {
	return ReconcileConfig{
		CSV:       "build/BRTrains XL Tracking Spreadsheet - Sheet1.csv",
		IDColumn:  "Unit ID",
		BackupDir: "template/autogen/backup",
		Cap:       32767,
		Fields: []FieldMapping{
			{Column: "Cost Factor", Property: "cost_factor", Aggregate: "max"},
			{Column: "Running Cost Factor", Property: "running_cost_factor", Aggregate: "max"},
			{Column: "Air Drag Coefficient", Property: "air_drag_coefficient", Aggregate: "min"},
			{Column: "Tractive Effort Coefficient", Property: "tractive_effort_coefficient", Aggregate: "max"},
		},
	}
}

// Defaults returns a manifest rooted at dir that uses DefaultConfig.
func Defaults(dir string) *Manifest {
	return &Manifest{Root: dir, Config: DefaultConfig()}
}

// LoadManifest parses and validates the manifest at path. Keys the file
// leaves out keep their default values.
func LoadManifest(path string) (*Manifest, error) {
	cfg := DefaultConfig()
	// Lists and the chain table come from the file alone when it defines them.
	cfg.Required = nil
	cfg.Chains = nil
	cfg.Reconcile.Fields = nil

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, invalid(path, "failed to parse TOML: %v", err)
	}
	if !meta.IsDefined("package") {
		return nil, invalid(path, "missing [package]")
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, invalid(path, "missing [package].name")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, invalid(path, "unknown keys: %s", strings.Join(keys, ", "))
	}

	def := DefaultConfig()
	if !meta.IsDefined("required") {
		cfg.Required = def.Required
	}
	if cfg.Chains == nil {
		cfg.Chains = map[string][]string{}
	}
	if !meta.IsDefined("reconcile", "fields") {
		cfg.Reconcile.Fields = def.Reconcile.Fields
	}
	for i, f := range cfg.Reconcile.Fields {
		switch strings.ToLower(strings.TrimSpace(f.Aggregate)) {
		case "", "max":
			cfg.Reconcile.Fields[i].Aggregate = "max"
		case "min":
			cfg.Reconcile.Fields[i].Aggregate = "min"
		default:
			return nil, invalid(path, "[[reconcile.fields]] %q: aggregate must be max or min, got %q", f.Column, f.Aggregate)
		}
		if strings.TrimSpace(f.Column) == "" || strings.TrimSpace(f.Property) == "" {
			return nil, invalid(path, "[[reconcile.fields]] entries need column and property")
		}
	}
	if cfg.Reconcile.Cap <= 0 {
		return nil, invalid(path, "[reconcile].cap must be positive")
	}

	m := &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}
	if err := m.Config.FragmentRules().Validate(); err != nil {
		return nil, invalid(path, "%v", err)
	}
	return m, nil
}

// Load finds the manifest above startDir and loads it. Without a manifest it
// returns Defaults(startDir) and found=false.
func Load(startDir string) (m *Manifest, found bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		abs, err := filepath.Abs(startDirOrDot(startDir))
		if err != nil {
			return nil, false, err
		}
		return Defaults(abs), false, nil
	}
	m, err = LoadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// FragmentRules converts the manifest into scanner rules.
func (c Config) FragmentRules() fragment.Rules {
	required := make([]fragment.Requirement, len(c.Required))
	for i, r := range c.Required {
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("%q not found", r.File)
		}
		required[i] = fragment.Requirement{Name: strings.TrimSpace(r.File), Message: msg, Fatal: r.Fatal}
	}
	chains := make(map[string][]string, len(c.Chains))
	for trigger, followers := range c.Chains {
		chains[trigger] = append([]string(nil), followers...)
	}
	return fragment.Rules{
		Extension:        c.Fragments.Extension,
		Required:         required,
		Chains:           chains,
		PriorityDir:      c.Tiers.Priority,
		AppendDir:        c.Tiers.Append,
		CompanionToken:   c.Companions.Token,
		CompanionContext: c.Companions.Context,
	}
}

// Resolve anchors a manifest-relative path at the project root.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}

func invalid(path, format string, args ...any) error {
	return &diag.Error{
		Code:    diag.InvalidManifest,
		Path:    path,
		Message: path + ": " + fmt.Sprintf(format, args...),
	}
}

func startDirOrDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
