package parsing

import "strings"

// Classifier separates receipt boilerplate from candidate item lines
type Classifier struct {
	keywords []string
}

// NewClassifier creates a Classifier from the vocabulary's keyword set
func NewClassifier(v Vocabulary) *Classifier {
	keywords := make([]string, 0, len(v.BoilerplateKeywords))
	for _, k := range v.BoilerplateKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Classifier{keywords: keywords}
}

// IsBoilerplate reports whether a line should be dropped before extraction.
// Keywords match as substrings, so "Subtotal" and "Store Card" both hit.
func (c *Classifier) IsBoilerplate(line string) bool {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return true
	}
	for _, k := range c.keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}
