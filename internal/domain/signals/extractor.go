package signals

import (
	"context"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// DefaultExampleCap is the number of matched substrings kept per category.
const DefaultExampleCap = 3

// Extractor counts category matches in observation text. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	table      *Table
	exampleCap int
	log        logger.Logger
}

// NewExtractor creates an extractor over table.
func NewExtractor(table *Table, opts ...Option) *Extractor {
	e := &Extractor{
		table:      table,
		exampleCap: DefaultExampleCap,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the pattern table the extractor uses.
func (e *Extractor) Table() *Table { return e.table }

// Extract returns one SignalCount per category, in table order. Empty text
// yields zero counts.
func (e *Extractor) Extract(ctx context.Context, o model.Observation) []model.SignalCount {
	out := make([]model.SignalCount, len(e.table.categories))
	total := 0
	for i, c := range e.table.categories {
		out[i] = e.count(c, o.Text)
		total += out[i].Count
	}
	e.log.Debug(ctx, "signals extracted",
		logger.String("observation_id", o.ID),
		logger.Int("total", total),
	)
	return out
}

// CountCategory counts matches of a single category in text.
func (e *Extractor) CountCategory(category, text string) (model.SignalCount, error) {
	c, err := e.table.lookup(category)
	if err != nil {
		return model.SignalCount{}, err
	}
	return e.count(c, text), nil
}

func (e *Extractor) count(c compiled, text string) model.SignalCount {
	sc := model.SignalCount{Category: c.Name}
	if text == "" {
		return sc
	}
	locs := c.re.FindAllStringIndex(text, -1)
	sc.Count = len(locs)
	for _, loc := range locs {
		if len(sc.Examples) >= e.exampleCap {
			break
		}
		sc.Examples = append(sc.Examples, text[loc[0]:loc[1]])
	}
	return sc
}
