package deck

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Shuffler permutes card ids uniformly. Every shuffle in the engine (build,
// explicit shuffle, returning the discard) goes through Shuffle.
type Shuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShuffler wraps src.
func NewShuffler(src rand.Source) *Shuffler {
	return &Shuffler{rng: rand.New(src)}
}

// NewSeededShuffler returns a deterministic shuffler.
func NewSeededShuffler(seed uint64) *Shuffler {
	return NewShuffler(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomShuffler seeds a shuffler from crypto/rand.
func NewRandomShuffler() *Shuffler {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewShuffler(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return NewShuffler(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// Shuffle permutes ids in place (Fisher–Yates).
func (s *Shuffler) Shuffle(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(ids) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}
