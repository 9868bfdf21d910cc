package adapter

import "sync"

// scratch hands out per-call conversion buffers from one reusable arena.
type scratch struct {
	arena []byte
	args  [][]byte
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			arena: make([]byte, 0, 256),
			args:  make([][]byte, 0, 8),
		}
	},
}

const maxPooledScratch = 64 << 10

func getScratch() *scratch {
	return scratchPool.Get().(*scratch)
}

// alloc returns n zeroed bytes. Slices from an outgrown arena stay valid
// until release.
func (s *scratch) alloc(n int) []byte {
	if len(s.arena)+n > cap(s.arena) {
		s.arena = make([]byte, 0, max(2*cap(s.arena), n))
	}
	start := len(s.arena)
	s.arena = s.arena[:start+n]
	b := s.arena[start : start+n : start+n]
	clear(b)
	return b
}

// release returns s to the pool. s must not be used afterwards.
func (s *scratch) release() {
	if cap(s.arena) > maxPooledScratch {
		return
	}
	s.arena = s.arena[:0]
	clear(s.args)
	s.args = s.args[:0]
	scratchPool.Put(s)
}
