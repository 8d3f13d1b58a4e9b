package parsing

// UnitSpelling maps a lower-case unit abbreviation to its display spelling
type UnitSpelling struct {
	Abbrev    string
	Canonical string
}

// Grocery maps a lower-case dictionary term to its display name
type Grocery struct {
	Term    string
	Display string
}

// Vocabulary holds every lookup table used by the pipeline.
// Swapping it out is how a different locale or store format is supported.
type Vocabulary struct {
	// BoilerplateKeywords are matched as lower-case substrings
	BoilerplateKeywords []string
	// CurrencyGlyphs may precede the trailing price
	CurrencyGlyphs []string
	// MeasureUnits are weight/volume abbreviations used for quantity detection
	MeasureUnits []string
	// PackageUnits are packaging words used for quantity detection
	PackageUnits []string
	// UnitSpellings rewrites unit tokens during quantity normalization
	UnitSpellings []UnitSpelling
	// LeadingDescriptors are stripped from the start of item names
	LeadingDescriptors []string
	// TrailingQualifiers are stripped from the end of item names
	TrailingQualifiers []string
	// Groceries is ordered; when a term is listed twice the first entry wins
	Groceries []Grocery
}

// DefaultVocabulary returns the tables for English-language grocery receipts
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		BoilerplateKeywords: []string{
			"receipt", "total", "subtotal", "tax", "vat", "change", "cash", "card",
			"thank you", "visit", "store", "phone", "address", "date", "time",
			"cashier", "till", "transaction", "balance", "discount",
		},
		CurrencyGlyphs: []string{"£", "$", "€"},
		MeasureUnits:   []string{"kg", "g", "lb", "oz", "pt", "ml", "l"},
		PackageUnits:   []string{"pack", "bag", "bottle", "can"},
		UnitSpellings: []UnitSpelling{
			{Abbrev: "kg", Canonical: "kg"},
			{Abbrev: "g", Canonical: "g"},
			{Abbrev: "lb", Canonical: "lb"},
			{Abbrev: "oz", Canonical: "oz"},
			{Abbrev: "pt", Canonical: "PT"},
			{Abbrev: "l", Canonical: "L"},
			{Abbrev: "ml", Canonical: "mL"},
			{Abbrev: "pack", Canonical: "pack"},
			{Abbrev: "bag", Canonical: "bag"},
			{Abbrev: "bottle", Canonical: "bottle"},
			{Abbrev: "can", Canonical: "can"},
		},
		LeadingDescriptors: []string{"organic", "fresh", "free range", "free-range"},
		TrailingQualifiers: []string{"each", "ea"},
		Groceries: []Grocery{
			{Term: "milk", Display: "Milk"},
			{Term: "bread", Display: "Bread"},
			{Term: "eggs", Display: "Eggs"},
			{Term: "butter", Display: "Butter"},
			{Term: "cheese", Display: "Cheese"},
			{Term: "chicken", Display: "Chicken"},
			{Term: "beef", Display: "Beef"},
			{Term: "rice", Display: "Rice"},
			{Term: "pasta", Display: "Pasta"},
		},
	}
}
