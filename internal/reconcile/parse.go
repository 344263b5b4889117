package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

var itemDecl = regexp.MustCompile(`item\s*\(\s*FEAT_TRAINS\s*,\s*[^,]+\s*,\s*(\d+)\s*\)`)

// Property is one "<name>: <number>;" line found in a fragment.
type Property struct {
	Name  string
	Value float64
	// start and end delimit the number in the source text.
	start, end int
}

// Parser extracts the train item id and the tracked properties from a
// fragment.
type Parser struct {
	field *regexp.Regexp
}

// NewParser returns a parser for the given property names.
func NewParser(properties []string) *Parser {
	quoted := make([]string, len(properties))
	for i, p := range properties {
		quoted[i] = regexp.QuoteMeta(p)
	}
	pattern := `(?m)^[ \t]*(` + strings.Join(quoted, "|") + `)[ \t]*:[ \t]*([-+]?\d*\.?\d+)[ \t]*;`
	return &Parser{field: regexp.MustCompile(pattern)}
}

// Parse returns the first train item id declared in text and every tracked
// property in source order. ok is false when text declares no train item.
func (p *Parser) Parse(text []byte) (itemID string, props []Property, ok bool) {
	m := itemDecl.FindSubmatch(text)
	if m == nil {
		return "", nil, false
	}
	itemID = string(m[1])
	for _, loc := range p.field.FindAllSubmatchIndex(text, -1) {
		v, err := strconv.ParseFloat(string(text[loc[4]:loc[5]]), 64)
		if err != nil {
			continue
		}
		props = append(props, Property{
			Name:  string(text[loc[2]:loc[3]]),
			Value: v,
			start: loc[4],
			end:   loc[5],
		})
	}
	return itemID, props, true
}

// ValidItemID reports whether id fits the 16-bit id space of train items.
func ValidItemID(id string) bool {
	n, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	_, err = safecast.Conv[uint16](n)
	return err == nil
}

// formatValue prints integral values without a fraction.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
