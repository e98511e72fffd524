// Package pool provides deduplicated, stable storage for short strings such
// as route paths and tags. Stored strings never move: callers may hold the
// returned pointers for the lifetime of the program once the pool is sealed.
package pool

import (
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of entries reserved when no explicit
// reservation is made. Sized for a device registering a few dozen routes.
const DefaultCapacity = 64

// Pool is an append-only intern table under a monotone seal. Entries are
// backed by a slice whose capacity is fixed up front; the pool refuses to
// grow past it so that pointers into the backing array remain valid.
type Pool struct {
	mu      sync.Mutex
	entries []string
	sealed  bool
	log     zerolog.Logger
}

// New creates a pool with room for DefaultCapacity strings.
func New(log zerolog.Logger) *Pool {
	return NewWithCapacity(DefaultCapacity, log)
}

// NewWithCapacity creates a pool with room for exactly n strings.
func NewWithCapacity(n int, log zerolog.Logger) *Pool {
	if n <= 0 {
		n = DefaultCapacity
	}
	return &Pool{
		entries: make([]string, 0, n),
		log:     log.With().Str("component", "pool").Logger(),
	}
}

// Store interns s and returns a stable pointer to the pooled copy. Equal
// inputs always yield the same pointer. The empty string, a store after
// Seal of a not-yet-present string, and capacity exhaustion all return nil.
func (p *Pool) Store(s string) *string {
	if s == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.entries {
		if p.entries[i] == s {
			return &p.entries[i]
		}
	}
	if p.sealed {
		p.log.Error().Str("value", s).Msg("store after seal; registration after finalization?")
		return nil
	}
	if len(p.entries) == cap(p.entries) {
		p.log.Error().Str("value", s).Int("capacity", cap(p.entries)).Msg("pool capacity exceeded")
		return nil
	}
	p.entries = append(p.entries, s)
	return &p.entries[len(p.entries)-1]
}

// Seal makes the pool immutable. Idempotent and final: there is no unseal.
func (p *Pool) Seal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sealed = true
}

// Sealed reports whether Seal has been called.
func (p *Pool) Sealed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sealed
}

// Reserve grows the reservation to hold n strings. It is a no-op once any
// string is stored or the pool is sealed, since growing the backing array
// would invalidate pointers already handed out.
func (p *Pool) Reserve(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed || len(p.entries) > 0 || n <= cap(p.entries) {
		return false
	}
	p.entries = make([]string, 0, n)
	return true
}

// Clear empties the pool. Refused while sealed.
func (p *Pool) Clear() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		p.log.Error().Msg("clear refused: pool is sealed")
		return false
	}
	p.entries = p.entries[:0]
	return true
}

// Size returns the number of interned strings.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Capacity returns the reserved entry count.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cap(p.entries)
}

// MemoryUsage returns the total bytes held by interned strings.
func (p *Pool) MemoryUsage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for i := range p.entries {
		total += len(p.entries[i]) + 1
	}
	return total
}
