package reconcile

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// PrintOptions selects which lines Print emits.
type PrintOptions struct {
	// Check prints one line per mismatching property.
	Check bool
}

// Print writes the report lines for rep. Unknown and invalid ids are always
// reported; updates are reported for rewritten files.
func Print(w io.Writer, rep *Report, opts PrintOptions) error {
	mismatch := color.New(color.FgYellow, color.Bold).SprintFunc()
	warn := color.New(color.FgMagenta, color.Bold).SprintFunc()
	updated := color.New(color.FgGreen, color.Bold).SprintFunc()

	width := 0
	for _, f := range rep.Files {
		if len(f.Mismatches) > 0 {
			width = max(width, runewidth.StringWidth(f.Name()))
		}
	}

	for _, f := range rep.Files {
		var err error
		switch {
		case f.InvalidID:
			_, err = fmt.Fprintf(w, "%s %s: item_id %s is not a valid train id\n", warn("[WARN]"), f.Name(), f.ItemID)
		case !f.Known:
			_, err = fmt.Fprintf(w, "%s %s: item_id %s not found in CSV\n", warn("[WARN]"), f.Name(), f.ItemID)
		}
		if err != nil {
			return err
		}
		if opts.Check {
			for _, m := range f.Mismatches {
				_, err = fmt.Fprintf(w, "%s %s | %s | %s: PNML=%s, CSV=%s\n",
					mismatch("[MISMATCH]"),
					runewidth.FillRight(f.Name(), width),
					f.ItemID, m.Property, formatValue(m.Old), formatValue(m.New))
				if err != nil {
					return err
				}
			}
		}
		if f.Updated {
			if _, err := fmt.Fprintf(w, "%s %s\n", updated("[UPDATED]"), f.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}
