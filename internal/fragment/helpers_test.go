package fragment

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// project lays out a src/gfx/lang tree under a temp dir.
type project struct {
	root string
	src  string
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()
	root := t.TempDir()
	p := project{root: root, src: filepath.Join(root, "src")}
	for _, dir := range []string{"src", "gfx", "lang"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for rel, content := range files {
		p.write(t, rel, content)
	}
	return p
}

func (p project) write(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(p.src, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func (p project) layout() Layout {
	return Layout{
		SrcDir:  p.src,
		GfxDir:  filepath.Join(p.root, "gfx"),
		LangDir: filepath.Join(p.root, "lang"),
	}
}

// baseFiles is the smallest valid tree.
func baseFiles() map[string]string {
	return map[string]string{
		"grf.pnml":       "grf {}",
		"railtypes.pnml": "railtypetable {}",
	}
}

func withFiles(extra map[string]string) map[string]string {
	files := baseFiles()
	for k, v := range extra {
		files[k] = v
	}
	return files
}

func debugLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, logging.Debug), &buf
}

// assemble runs scan and aggregate and returns the buffer.
func assemble(t *testing.T, p project, rules Rules, logger *log.Logger) *Buffer {
	t.Helper()
	bag := diag.NewBag(0)
	scan, err := Scan(p.src, rules, logger, bag)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	buf, err := Aggregate(p.src, rules, scan, AggregateOptions{Logger: logger})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return buf
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func count(names []string, name string) int {
	n := 0
	for _, x := range names {
		if x == name {
			n++
		}
	}
	return n
}

func joined(names []string) string { return strings.Join(names, ",") }
