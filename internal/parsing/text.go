package parsing

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCase upper-cases the first letter of every word and lower-cases the rest.
// A Caser keeps state between calls, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func sortByLengthDesc(words []string) {
	slices.SortStableFunc(words, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
}
