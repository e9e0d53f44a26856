package search

import "slices"

// conjunctionScorer matches documents matched by every sub-scorer.
type conjunctionScorer struct {
	scorers []Scorer
	coord   float64
	lastDoc int
	started bool
}

func newConjunctionScorer(coord float64, scorers []Scorer) *conjunctionScorer {
	return &conjunctionScorer{scorers: scorers, coord: coord, lastDoc: -1}
}

// init positions every scorer on the first common document.
func (c *conjunctionScorer) init() error {
	c.started = true
	for _, s := range c.scorers {
		doc, err := s.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			c.lastDoc = NoMoreDocs
			return nil
		}
	}
	slices.SortStableFunc(c.scorers, func(a, b Scorer) int { return a.DocID() - b.DocID() })

	doc, err := c.doNext()
	if err != nil {
		return err
	}
	if doc == NoMoreDocs {
		c.lastDoc = NoMoreDocs
		return nil
	}
	// Sparse scorers tend to skip furthest on the first round; try them
	// first from now on.
	end := len(c.scorers) - 1
	for i := 0; i < (end+1)>>1; i++ {
		c.scorers[i], c.scorers[end-i] = c.scorers[end-i], c.scorers[i]
	}
	return nil
}

func (c *conjunctionScorer) doNext() (int, error) {
	first := 0
	last := len(c.scorers) - 1
	doc := c.scorers[last].DocID()
	for {
		s := c.scorers[first]
		if s.DocID() >= doc {
			return doc, nil
		}
		var err error
		if doc, err = s.Advance(doc); err != nil {
			return doc, err
		}
		if first == last {
			first = 0
		} else {
			first++
		}
	}
}

func (c *conjunctionScorer) DocID() int { return c.lastDoc }

func (c *conjunctionScorer) NextDoc() (int, error) {
	if c.lastDoc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !c.started {
		if err := c.init(); err != nil {
			return c.lastDoc, err
		}
		if c.lastDoc != NoMoreDocs {
			c.lastDoc = c.scorers[len(c.scorers)-1].DocID()
		}
		return c.lastDoc, nil
	}
	if _, err := c.scorers[len(c.scorers)-1].NextDoc(); err != nil {
		return c.lastDoc, err
	}
	doc, err := c.doNext()
	if err != nil {
		return c.lastDoc, err
	}
	c.lastDoc = doc
	return doc, nil
}

func (c *conjunctionScorer) Advance(target int) (int, error) {
	CheckAdvance(c.lastDoc, target)
	if c.lastDoc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !c.started {
		if err := c.init(); err != nil {
			return c.lastDoc, err
		}
		if c.lastDoc == NoMoreDocs {
			return NoMoreDocs, nil
		}
	}
	last := c.scorers[len(c.scorers)-1]
	if last.DocID() < target {
		if _, err := last.Advance(target); err != nil {
			return c.lastDoc, err
		}
	}
	doc, err := c.doNext()
	if err != nil {
		return c.lastDoc, err
	}
	c.lastDoc = doc
	return doc, nil
}

func (c *conjunctionScorer) Score() float64 {
	CheckPositioned(c.lastDoc)
	var sum float64
	for _, s := range c.scorers {
		sum += s.Score()
	}
	return sum * c.coord
}

func (c *conjunctionScorer) Freq() float64 { return float64(len(c.scorers)) }
