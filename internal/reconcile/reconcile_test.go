package reconcile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"grfbuild/internal/diag"
)

const sheet = "\ufeffUnit ID,Name,cost factor,Running Cost Factor,Air Drag Coefficient,Tractive Effort Coefficient\n" +
	" 1234 ,BR37,20,7,0.06,0.3\n" +
	"1234,BR37/4,25,5,0.05,n/a\n" +
	",blank,1,1,1,1\n" +
	"77,Huge,40000,,,\n"

func TestReadCSVAggregates(t *testing.T) {
	vals, err := ReadCSV(strings.NewReader(sheet), "Unit ID", DefaultFields())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("units = %v", vals)
	}
	u := vals["1234"]
	want := map[string]float64{
		"cost_factor":                 25,
		"running_cost_factor":         7,
		"air_drag_coefficient":        0.05,
		"tractive_effort_coefficient": 0.3,
	}
	for k, v := range want {
		if u[k] != v {
			t.Fatalf("%s = %v, want %v", k, u[k], v)
		}
	}
	if _, ok := vals["77"]["running_cost_factor"]; ok {
		t.Fatalf("empty cell produced a value")
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"missing id", "Name,Cost Factor\nx,1\n"},
		{"missing field", "Unit ID,Cost Factor\n1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.csv), "Unit ID", DefaultFields())
			if diag.CodeOf(err) != diag.InvalidSpreadsheet {
				t.Fatalf("error = %v, want InvalidSpreadsheet", err)
			}
		})
	}
}

const loco = `item(FEAT_TRAINS, br37, 1234) {
    property {
        cost_factor:  20;
        running_cost_factor: 7;
        air_drag_coefficient:0.06;
    }
}
`

func TestParse(t *testing.T) {
	p := NewParser([]string{"cost_factor", "running_cost_factor", "air_drag_coefficient"})
	id, props, ok := p.Parse([]byte(loco))
	if !ok || id != "1234" || len(props) != 3 {
		t.Fatalf("Parse = %q %v %v", id, props, ok)
	}
	if props[0].Name != "cost_factor" || props[2].Value != 0.06 {
		t.Fatalf("props = %+v", props)
	}
	if _, _, ok := p.Parse([]byte("switch(FEAT_TRAINS, SELF, sw, 1) {}")); ok {
		t.Fatalf("non-item fragment parsed")
	}
}

func TestValidItemID(t *testing.T) {
	for id, want := range map[string]bool{"0": true, "65535": true, "65536": false, "x": false} {
		if got := ValidItemID(id); got != want {
			t.Fatalf("ValidItemID(%q) = %v, want %v", id, got, want)
		}
	}
}

type tree struct {
	src    string
	backup string
}

func newTree(t *testing.T, files map[string]string) tree {
	t.Helper()
	root := t.TempDir()
	tr := tree{src: filepath.Join(root, "src"), backup: filepath.Join(root, "backup")}
	for rel, content := range files {
		p := filepath.Join(tr.src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return tr
}

func testValues() Values {
	return Values{
		"1234": {"cost_factor": 25, "running_cost_factor": 7, "air_drag_coefficient": 0.05},
		"77":   {"cost_factor": 40000},
	}
}

func TestRunCheck(t *testing.T) {
	tr := newTree(t, map[string]string{
		"trains/BR37.pnml":    loco,
		"trains/Huge.pnml":    "item(FEAT_TRAINS, huge, 77) {\n cost_factor: 32767;\n}\n",
		"trains/Unknown.pnml": "item(FEAT_TRAINS, unk, 9) {\n cost_factor: 1;\n}\n",
		"cargos.pnml":         "cargotable {}",
	})
	rep, err := Run(context.Background(), Options{SrcDir: tr.src, Values: testValues(), Fields: DefaultFields(), Jobs: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Scanned != 4 || len(rep.Files) != 3 {
		t.Fatalf("scanned %d, files %d", rep.Scanned, len(rep.Files))
	}
	if rep.Files[0].Rel != "trains/BR37.pnml" || rep.Files[2].Rel != "trains/Unknown.pnml" {
		t.Fatalf("files not sorted: %s, %s", rep.Files[0].Rel, rep.Files[2].Rel)
	}
	br37 := rep.Files[0]
	if len(br37.Mismatches) != 2 {
		t.Fatalf("BR37 mismatches = %+v", br37.Mismatches)
	}
	if huge := rep.Files[1]; len(huge.Mismatches) != 0 {
		t.Fatalf("capped value reported as mismatch: %+v", huge.Mismatches)
	}
	if rep.Files[2].Known {
		t.Fatalf("unknown id marked known")
	}
	data, _ := os.ReadFile(filepath.Join(tr.src, "trains", "BR37.pnml"))
	if string(data) != loco {
		t.Fatalf("check mode modified a file")
	}

	color.NoColor = true
	var out bytes.Buffer
	if err := Print(&out, rep, PrintOptions{Check: true}); err != nil {
		t.Fatalf("Print: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"[MISMATCH] BR37.pnml | 1234 | cost_factor: PNML=20, CSV=25",
		"[MISMATCH] BR37.pnml | 1234 | air_drag_coefficient: PNML=0.06, CSV=0.05",
		"[WARN] Unknown.pnml: item_id 9 not found in CSV",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunOverwrite(t *testing.T) {
	tr := newTree(t, map[string]string{"trains/BR37.pnml": loco})
	opts := Options{SrcDir: tr.src, Values: testValues(), Fields: DefaultFields(), Overwrite: true, BackupDir: tr.backup}

	rep, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Files[0].Updated || !rep.Files[0].BackedUp {
		t.Fatalf("result = %+v", rep.Files[0])
	}
	data, _ := os.ReadFile(filepath.Join(tr.src, "trains", "BR37.pnml"))
	want := strings.Replace(strings.Replace(loco, "cost_factor:  20;", "cost_factor:  25;", 1), "air_drag_coefficient:0.06;", "air_drag_coefficient:0.05;", 1)
	if string(data) != want {
		t.Fatalf("rewritten file:\n%s\nwant:\n%s", data, want)
	}
	backup, _ := os.ReadFile(filepath.Join(tr.backup, "BR37.pnml"))
	if string(backup) != loco {
		t.Fatalf("backup = %q", backup)
	}

	// A second overwrite keeps the first backup.
	if err := os.WriteFile(filepath.Join(tr.src, "trains", "BR37.pnml"), []byte(loco), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	opts.Values["1234"]["cost_factor"] = 30
	rep, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep.Files[0].BackedUp {
		t.Fatalf("backup overwritten")
	}

	color.NoColor = true
	var out bytes.Buffer
	if err := Print(&out, rep, PrintOptions{}); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[UPDATED] BR37.pnml" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunMissingSource(t *testing.T) {
	_, err := Run(context.Background(), Options{SrcDir: filepath.Join(t.TempDir(), "nope")})
	if diag.CodeOf(err) != diag.MissingDirectory {
		t.Fatalf("error = %v, want MissingDirectory", err)
	}
}
