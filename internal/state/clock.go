package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequencer stamps messages leaving this process so peers can tell whose
// segment they are looking at and in which order it was produced.
type Sequencer struct {
	site    string
	lamport atomic.Uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{site: uuid.NewString()}
}

func (s *Sequencer) Site() string { return s.site }

// Next returns the next local tick.
func (s *Sequencer) Next() uint64 {
	return s.lamport.Add(1)
}

// Observe advances the local clock past a remote tick.
func (s *Sequencer) Observe(remote uint64) {
	for {
		cur := s.lamport.Load()
		if remote <= cur || s.lamport.CompareAndSwap(cur, remote) {
			return
		}
	}
}
