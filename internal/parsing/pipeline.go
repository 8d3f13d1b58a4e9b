package parsing

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pipeline turns recognized receipt lines into normalized line items
type Pipeline struct {
	classifier *Classifier
	extractor  *Extractor
	normalizer *Normalizer
}

// New creates a Pipeline whose components share one vocabulary
func New(v Vocabulary) *Pipeline {
	return &Pipeline{
		classifier: NewClassifier(v),
		extractor:  NewExtractor(v),
		normalizer: NewNormalizer(v),
	}
}

// NewDefault creates a Pipeline with DefaultVocabulary
func NewDefault() *Pipeline {
	return New(DefaultVocabulary())
}

// Normalizer exposes the pipeline's normalizer for records produced elsewhere
func (p *Pipeline) Normalizer() *Normalizer {
	return p.normalizer
}

// Run processes lines in order and returns one item per surviving line
func (p *Pipeline) Run(lines []string, date string) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		if item, ok := p.processLine(line, date); ok {
			items = append(items, item)
		}
	}
	return items
}

// RunConcurrent is Run spread over at most workers goroutines.
// The result has the same order as Run. A cancelled ctx stops the
// remaining lines and returns the context error.
func (p *Pipeline) RunConcurrent(ctx context.Context, lines []string, date string, workers int) ([]LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers < 2 || len(lines) < 2 {
		return p.Run(lines, date), nil
	}

	type slot struct {
		item LineItem
		ok   bool
	}
	slots := make([]slot, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, ok := p.processLine(line, date)
			slots[i] = slot{item: item, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(lines))
	for _, s := range slots {
		if s.ok {
			items = append(items, s.item)
		}
	}
	return items, nil
}

func (p *Pipeline) processLine(line, date string) (LineItem, bool) {
	if p.classifier.IsBoilerplate(line) {
		return LineItem{}, false
	}
	raw, ok := p.extractor.Extract(line, date)
	if !ok {
		return LineItem{}, false
	}
	return p.normalizer.Normalize(raw), true
}
