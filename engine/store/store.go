// package store implements the two-slot ping-pong state store at the heart of
// the compute/render pipeline. Exactly one slot is readable and one writable
// at any instant; Swap exchanges the labels in O(1) and never copies payload.
package store

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/bounce-go/engine/particle"
)

// slot owns one complete particle array plus the generation it holds and the
// overlap count recorded for that generation.
type slot struct {
	particles  []particle.Particle
	generation uint64
	overlaps   int
}

// store implements the Store interface.
type store struct {
	// mu guards the labels and lease bookkeeping only. The particle payload
	// is never accessed under this mutex; payload exclusivity comes from the
	// scheduler's handshake.
	mu sync.Mutex

	slots     [2]slot
	readIndex int // the write index is always 1 - readIndex

	generation uint64 // latest published generation (the read slot's)

	writeHeld bool // a write lease is outstanding
	written   bool // a write lease was released since the last Swap
	readers   int  // outstanding read leases

	count int

	transitionLog bool
}

// Store owns the two particle slots and hands out exclusive write access,
// shared read access, and the O(1) read/write label swap.
//
// Access discipline: the writable slot is only ever touched by the compute
// context, the readable slot only by the render context, and Swap is only
// legal once the in-flight leases of both have been released. Violations are
// programming errors and panic with the violated invariant.
type Store interface {
	// Count returns the fixed particle count N. N is immutable after
	// construction.
	//
	// Returns:
	//   - int: the particle count
	Count() int

	// Generation returns the latest published generation, i.e. the
	// generation held by the current read slot. Generation 0 is the initial
	// state; each Swap increments it by exactly 1.
	//
	// Returns:
	//   - uint64: the published generation
	Generation() uint64

	// AcquireWrite returns an exclusive lease on the write slot's array for
	// producing the next generation. At most one write lease may be
	// outstanding; acquiring a second one panics.
	//
	// Returns:
	//   - WriteLease: the exclusive write lease
	AcquireWrite() WriteLease

	// AcquireRead returns a shared lease on the read slot's array. Multiple
	// concurrent read leases are fine within the single render context.
	//
	// Returns:
	//   - ReadLease: the shared read lease
	AcquireRead() ReadLease

	// Swap exchanges the read/write labels: the just-written slot becomes
	// readable and the previously readable slot becomes the next write
	// target. The exchange is an index flip, never a data copy. Swap panics
	// if any lease is outstanding or if no write was completed since the
	// previous Swap.
	Swap()
}

// WriteLease is an exclusive handle to the write slot's particle array.
type WriteLease interface {
	// Particles returns the writable particle array. The slice must not be
	// retained past Release.
	//
	// Returns:
	//   - []particle.Particle: the write slot's array
	Particles() []particle.Particle

	// Generation returns the generation this write will publish once the
	// store is swapped.
	//
	// Returns:
	//   - uint64: the in-production generation
	Generation() uint64

	// SetOverlaps records the overlap count for the generation being
	// produced.
	//
	// Parameters:
	//   - n: the overlapping-pair count
	SetOverlaps(n int)

	// Release returns the lease. Releasing twice panics.
	Release()
}

// ReadLease is a read-only handle to the read slot's particle array.
type ReadLease interface {
	// Particles returns the readable particle array. The contents must not
	// be mutated, and the slice must not be retained past Release.
	//
	// Returns:
	//   - []particle.Particle: the read slot's array
	Particles() []particle.Particle

	// Generation returns the published generation this lease observes.
	//
	// Returns:
	//   - uint64: the observed generation
	Generation() uint64

	// Overlaps returns the overlap count recorded for the observed
	// generation.
	//
	// Returns:
	//   - int: the overlapping-pair count
	Overlaps() int

	// Release returns the lease. Releasing twice panics.
	Release()
}

// Ensure store implements Store interface.
var _ Store = &store{}

// NewStore creates a Store over two slots, both initialized with a copy of
// the provided initial state so the render side has valid data before the
// first compute cycle publishes. The particle count is fixed to len(initial)
// for the store's lifetime.
//
// Parameters:
//   - initial: the initial particle array (must be non-empty; copied twice)
//   - options: functional options for store configuration
//
// Returns:
//   - Store: the newly created store
func NewStore(initial []particle.Particle, options ...StoreBuilderOption) Store {
	if len(initial) == 0 {
		panic("store: NewStore requires a non-empty initial state")
	}

	s := &store{
		count:     len(initial),
		readIndex: 0,
	}
	for i := range s.slots {
		s.slots[i].particles = make([]particle.Particle, len(initial))
		copy(s.slots[i].particles, initial)
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

func (s *store) Count() int {
	return s.count
}

func (s *store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *store) AcquireWrite() WriteLease {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeHeld {
		panic("store: AcquireWrite called while a write lease is outstanding")
	}
	s.writeHeld = true

	writeIndex := 1 - s.readIndex
	target := &s.slots[writeIndex]
	target.generation = s.generation + 1

	if s.transitionLog {
		log.Printf("[Store] write acquired: slot %d, generation %d", writeIndex, target.generation)
	}

	return &writeLease{store: s, slot: target, index: writeIndex}
}

func (s *store) AcquireRead() ReadLease {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readers++
	source := &s.slots[s.readIndex]

	if s.transitionLog {
		log.Printf("[Store] read acquired: slot %d, generation %d, readers %d", s.readIndex, source.generation, s.readers)
	}

	return &readLease{store: s, slot: source, index: s.readIndex}
}

func (s *store) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeHeld {
		panic("store: Swap called while a write lease is outstanding")
	}
	if s.readers > 0 {
		panic(fmt.Sprintf("store: Swap called with %d read leases outstanding", s.readers))
	}
	if !s.written {
		panic("store: Swap called without a completed write since the previous swap")
	}

	s.readIndex = 1 - s.readIndex
	s.generation++
	s.written = false

	if s.transitionLog {
		log.Printf("[Store] swapped: read slot now %d, generation %d", s.readIndex, s.generation)
	}
}

// writeLease implements WriteLease.
type writeLease struct {
	store    *store
	slot     *slot
	index    int
	released bool
}

var _ WriteLease = &writeLease{}

func (l *writeLease) Particles() []particle.Particle {
	if l.released {
		panic("store: write lease used after Release")
	}
	return l.slot.particles
}

func (l *writeLease) Generation() uint64 {
	return l.slot.generation
}

// SetOverlaps records the overlap count directly on the slot; the lease holds
// exclusive access so no lock is needed.
func (l *writeLease) SetOverlaps(n int) {
	if l.released {
		panic("store: write lease used after Release")
	}
	l.slot.overlaps = n
}

func (l *writeLease) Release() {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.released {
		panic("store: write lease released twice")
	}
	l.released = true
	s.writeHeld = false
	s.written = true

	if s.transitionLog {
		log.Printf("[Store] write released: slot %d, generation %d", l.index, l.slot.generation)
	}
}

// readLease implements ReadLease.
type readLease struct {
	store    *store
	slot     *slot
	index    int
	released bool
}

var _ ReadLease = &readLease{}

func (l *readLease) Particles() []particle.Particle {
	if l.released {
		panic("store: read lease used after Release")
	}
	return l.slot.particles
}

func (l *readLease) Generation() uint64 {
	return l.slot.generation
}

func (l *readLease) Overlaps() int {
	return l.slot.overlaps
}

func (l *readLease) Release() {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.released {
		panic("store: read lease released twice")
	}
	l.released = true
	s.readers--

	if s.transitionLog {
		log.Printf("[Store] read released: slot %d, generation %d, readers %d", l.index, l.slot.generation, s.readers)
	}
}
