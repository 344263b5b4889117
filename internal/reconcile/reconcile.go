package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// DefaultCap is the largest value a property may be set to.
const DefaultCap = 32767

// Options configures Run.
type Options struct {
	SrcDir    string
	Extension string
	Values    Values
	Fields    []Field
	// Cap clamps spreadsheet values; 0 means DefaultCap.
	Cap float64
	// Overwrite rewrites mismatching values in place.
	Overwrite bool
	// BackupDir receives the original of every rewritten file, once.
	BackupDir string
	// Jobs bounds parallel parsing; 0 uses GOMAXPROCS.
	Jobs   int
	Logger *log.Logger
}

// Mismatch is a property whose fragment value differs from the spreadsheet.
type Mismatch struct {
	Property string
	Old      float64
	New      float64
}

// FileResult is the outcome for one fragment declaring a train item.
type FileResult struct {
	Path   string
	Rel    string
	ItemID string
	// Known is false when the spreadsheet has no row for ItemID.
	Known bool
	// InvalidID is set when ItemID does not fit a train id.
	InvalidID  bool
	Mismatches []Mismatch
	Updated    bool
	BackedUp   bool

	text  []byte
	props []Property
}

// Name is the file's base name.
func (r FileResult) Name() string { return filepath.Base(r.Path) }

// Report lists every fragment with a train item, sorted by path.
type Report struct {
	Files   []FileResult
	Scanned int
}

// Mismatches counts mismatching properties across all files.
func (r *Report) Mismatches() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Mismatches)
	}
	return n
}

// Run parses every fragment under SrcDir in parallel, compares it with
// Values and, with Overwrite, rewrites the files in sorted path order.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := logging.OrNop(opts.Logger)
	if opts.Cap <= 0 {
		opts.Cap = DefaultCap
	}
	if opts.Extension == "" {
		opts.Extension = ".pnml"
	}

	paths, err := listFragments(opts.SrcDir, opts.Extension)
	if err != nil {
		return nil, err
	}
	report := &Report{Scanned: len(paths)}
	if len(paths) == 0 {
		return report, nil
	}

	props := make([]string, len(opts.Fields))
	for i, f := range opts.Fields {
		props[i] = f.Property
	}
	parser := NewParser(props)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns its slot.
	results := make([]*FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, p := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := compareFile(p, opts, parser)
			if err != nil {
				return err
			}
			if res != nil {
				res.Rel = relPath(opts.SrcDir, p)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		if opts.Overwrite && len(res.Mismatches) > 0 {
			if err := rewrite(res, opts, logger); err != nil {
				return report, err
			}
		}
		res.text, res.props = nil, nil
		report.Files = append(report.Files, *res)
	}
	return report, nil
}

func compareFile(path string, opts Options, parser *Parser) (*FileResult, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrap(diag.ReadFailed, path, err)
	}
	itemID, props, ok := parser.Parse(text)
	if !ok {
		return nil, nil
	}
	res := &FileResult{Path: path, ItemID: itemID, text: text, props: props}
	if !ValidItemID(itemID) {
		res.InvalidID = true
		return res, nil
	}
	want, known := opts.Values[itemID]
	res.Known = known
	if !known {
		return res, nil
	}
	for _, p := range props {
		v, ok := want[p.Name]
		if !ok {
			continue
		}
		if v > opts.Cap {
			v = opts.Cap
		}
		if v != p.Value {
			res.Mismatches = append(res.Mismatches, Mismatch{Property: p.Name, Old: p.Value, New: v})
		}
	}
	return res, nil
}

// rewrite replaces every mismatching number in place and keeps the rest of
// the text untouched.
func rewrite(res *FileResult, opts Options, logger *log.Logger) error {
	target := make(map[string]float64, len(res.Mismatches))
	for _, m := range res.Mismatches {
		target[m.Property] = m.New
	}
	out := make([]byte, 0, len(res.text))
	last := 0
	for _, p := range res.props {
		v, ok := target[p.Name]
		if !ok || v == p.Value {
			continue
		}
		out = append(out, res.text[last:p.start]...)
		out = append(out, formatValue(v)...)
		last = p.end
	}
	out = append(out, res.text[last:]...)

	if opts.BackupDir != "" {
		backup := filepath.Join(opts.BackupDir, res.Name())
		if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(opts.BackupDir, 0o755); err != nil {
				return diag.Wrap(diag.WriteFailed, opts.BackupDir, err)
			}
			if err := os.WriteFile(backup, res.text, 0o600); err != nil {
				return diag.Wrap(diag.WriteFailed, backup, err)
			}
			res.BackedUp = true
		} else if err != nil {
			return diag.Wrap(diag.WriteFailed, backup, err)
		}
	}

	mode := os.FileMode(0o644)
	if st, err := os.Stat(res.Path); err == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(res.Path, out, mode); err != nil {
		return diag.Wrap(diag.WriteFailed, res.Path, err)
	}
	res.Updated = true
	logger.Debug("Rewrote fragment", "file", res.Rel, "values", len(res.Mismatches))
	return nil
}

func listFragments(root, ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ext {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, diag.Errorf(diag.MissingDirectory, root, "%q directory not found", root)
		}
		return nil, diag.Wrap(diag.ReadFailed, root, err)
	}
	sort.Strings(out)
	return out, nil
}

func relPath(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}
