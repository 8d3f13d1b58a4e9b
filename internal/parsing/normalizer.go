package parsing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unitToken    = regexp.MustCompile(`[a-z]+`)
	nameToken    = regexp.MustCompile(`\p{L}+`)
	plainDecimal = regexp.MustCompile(`^(?:\d+(?:\.\d+)?|\.\d+)$`)
)

// Normalizer canonicalizes the fields of a RawItem.
// It never fails; unusable fields fall back to fixed defaults.
type Normalizer struct {
	units     map[string]string
	glyphs    []string
	groceries []Grocery
}

// NewNormalizer creates a Normalizer from a vocabulary
func NewNormalizer(v Vocabulary) *Normalizer {
	units := make(map[string]string, len(v.UnitSpellings))
	for _, u := range v.UnitSpellings {
		abbrev := strings.ToLower(u.Abbrev)
		if _, ok := units[abbrev]; !ok {
			units[abbrev] = u.Canonical
		}
	}
	groceries := make([]Grocery, 0, len(v.Groceries))
	for _, g := range v.Groceries {
		groceries = append(groceries, Grocery{Term: strings.ToLower(g.Term), Display: g.Display})
	}
	return &Normalizer{
		units:     units,
		glyphs:    v.CurrencyGlyphs,
		groceries: groceries,
	}
}

// Normalize converts a RawItem into a LineItem
func (n *Normalizer) Normalize(item RawItem) LineItem {
	return LineItem{
		Date:       strings.TrimSpace(item.Date),
		Ingredient: n.Ingredient(item.Name),
		Quantity:   n.Quantity(item.Quantity),
		Price:      n.Price(item.Price),
		Notes:      strings.TrimSpace(item.Notes),
	}
}

// Quantity lower-cases the token and rewrites known unit words to their display spelling.
// Only whole alphabetic runs are rewritten, so "bottle" never has its "l" touched.
func (n *Normalizer) Quantity(raw string) string {
	raw = strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if raw == "" {
		return DefaultQuantity
	}
	return unitToken.ReplaceAllStringFunc(raw, func(tok string) string {
		if canonical, ok := n.units[tok]; ok {
			return canonical
		}
		return tok
	})
}

// Price strips currency glyphs and formats the amount with two fraction digits
func (n *Normalizer) Price(raw string) string {
	for _, g := range n.glyphs {
		raw = strings.ReplaceAll(raw, g, "")
	}
	raw = strings.TrimSpace(raw)
	if !plainDecimal.MatchString(raw) {
		return FallbackPrice
	}
	if strings.HasPrefix(raw, ".") {
		raw = "0" + raw
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return FallbackPrice
	}
	return d.StringFixed(2)
}

// Ingredient title-cases the name and swaps dictionary words for their display form.
// Terms match whole words only, so dictionary order matters only when a term is listed twice.
func (n *Normalizer) Ingredient(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return UnknownItem
	}
	return nameToken.ReplaceAllStringFunc(titleCase(name), func(word string) string {
		lower := strings.ToLower(word)
		for _, g := range n.groceries {
			if g.Term == lower {
				return g.Display
			}
		}
		return word
	})
}
