package fragment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteCreatesDirAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")
	var buf Buffer
	buf.Append(Block{Name: "grf.pnml", Content: []byte("grf {}")})

	logger, out := debugLogger()
	target, err := Write(dir, "mytrains", &buf, logger)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if target != filepath.Join(dir, "mytrains.nml") {
		t.Fatalf("target = %s", target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "// grf.pnml\ngrf {}\n\n" {
		t.Fatalf("content = %q", data)
	}
	if strings.Contains(out.String(), "Overwriting") {
		t.Fatalf("first write must not report overwrite")
	}

	var second Buffer
	second.Append(Block{Name: "x.pnml", Content: []byte("x")})
	if _, err := Write(dir, "mytrains", &second, logger); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	data, _ = os.ReadFile(target)
	if string(data) != "// x.pnml\nx\n\n" {
		t.Fatalf("content after overwrite = %q", data)
	}
	if !strings.Contains(out.String(), "already exists. Overwriting") {
		t.Fatalf("expected overwrite notice:\n%s", out.String())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteRequiresName(t *testing.T) {
	if _, err := Write(t.TempDir(), "", &Buffer{}, nil); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
