package parsing

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// quantityPattern is one entry of the ordered quantity search list
type quantityPattern struct {
	name string
	re   *regexp.Regexp
}

// Extractor cuts a candidate line into name, quantity and price fragments
type Extractor struct {
	price      *regexp.Regexp
	quantities []quantityPattern
	leading    *regexp.Regexp
	trailing   *regexp.Regexp
}

// NewExtractor compiles the extraction patterns for a vocabulary
func NewExtractor(v Vocabulary) *Extractor {
	glyphs := alternation(v.CurrencyGlyphs)
	pricePattern := `(\d+\.\d{2})$`
	if glyphs != "" {
		pricePattern = `(?:(?:` + glyphs + `)\s*)?` + pricePattern
	}

	// Tried in order; the first match wins even if a later pattern would match more text.
	// A pattern with a capture group only takes the group as the quantity.
	quantities := []quantityPattern{
		{name: "multiplier", re: regexp.MustCompile(`(?i)(\d+\s*[x×])(?:[^\p{L}]|$)`)},
	}
	if units := alternation(v.MeasureUnits); units != "" {
		quantities = append(quantities, quantityPattern{
			name: "measure",
			re:   regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:` + units + `)\b`),
		})
	}
	if units := alternation(v.PackageUnits); units != "" {
		quantities = append(quantities, quantityPattern{
			name: "package",
			re:   regexp.MustCompile(`(?i)\d+\s*(?:` + units + `)s?\b`),
		})
	}

	e := &Extractor{
		price:      regexp.MustCompile(pricePattern),
		quantities: quantities,
	}
	if words := alternation(v.LeadingDescriptors); words != "" {
		e.leading = regexp.MustCompile(`(?i)^(?:` + words + `)\b\s*`)
	}
	if words := alternation(v.TrailingQualifiers); words != "" {
		e.trailing = regexp.MustCompile(`(?i)(?:^|\s+)(?:` + words + `)$`)
	}
	return e
}

// Extract returns the raw fields of an item line.
// The bool is false when the line does not end with a price.
func (e *Extractor) Extract(line, date string) (RawItem, bool) {
	line = strings.TrimSpace(norm.NFC.String(line))

	loc := e.price.FindStringSubmatchIndex(line)
	if loc == nil {
		return RawItem{}, false
	}
	price := line[loc[2]:loc[3]]
	fragment := strings.TrimSpace(line[:loc[0]])

	quantity, name := e.splitQuantity(fragment)

	return RawItem{
		Date:     date,
		Name:     e.cleanName(name),
		Quantity: quantity,
		Price:    price,
	}, true
}

// splitQuantity finds the first matching quantity pattern and removes it from the fragment
func (e *Extractor) splitQuantity(fragment string) (string, string) {
	for _, p := range e.quantities {
		loc := p.re.FindStringSubmatchIndex(fragment)
		if loc == nil {
			continue
		}
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		quantity := strings.TrimSpace(fragment[start:end])
		return quantity, fragment[:start] + " " + fragment[end:]
	}
	return DefaultQuantity, fragment
}

func (e *Extractor) cleanName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, " :-*@")

	if e.leading != nil {
		for {
			stripped := e.leading.ReplaceAllString(name, "")
			if stripped == name {
				break
			}
			name = stripped
		}
	}
	if e.trailing != nil {
		name = e.trailing.ReplaceAllString(name, "")
	}

	return titleCase(strings.TrimSpace(name))
}

// alternation joins literal words into a regexp alternation, longest first
// so that "ml" is tried before "l".
func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	sortByLengthDesc(quoted)
	return strings.Join(quoted, "|")
}
