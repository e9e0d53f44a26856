package lexis

import (
	"context"

	"github.com/hupe1980/lexis/index"
)

// Close drops the field cache entries of every reader this searcher holds.
// The readers themselves stay usable and are not closed.
//
// After Close every method returns ErrClosed. Closing twice is a no-op.
func (s *Searcher) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	before := s.fc.Size()
	for _, r := range s.readers {
		s.fc.Purge(r)
		for _, leaf := range index.GatherSubReaders(r) {
			s.fc.Purge(leaf)
		}
	}
	s.logger.LogClose(context.Background(), len(s.readers), before-s.fc.Size())
	return nil
}
