package store

import (
	"testing"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParticles(n int) []particle.Particle {
	parts := make([]particle.Particle, n)
	for i := range parts {
		parts[i] = particle.Particle{
			Position: common.Vec2{X: float32(i) * 10, Y: float32(i) * 20},
			Velocity: common.Vec2{X: 1, Y: -1},
			Radius:   5,
		}
	}
	return parts
}

// TestNewStoreCopiesInitialIntoBothSlots verifies both slots start with
// identical valid state and that the store does not alias the caller's slice.
func TestNewStoreCopiesInitialIntoBothSlots(t *testing.T) {
	initial := testParticles(4)
	st := NewStore(initial)

	require.Equal(t, 4, st.Count())
	require.Equal(t, uint64(0), st.Generation())

	r := st.AcquireRead()
	assert.Equal(t, initial, r.Particles())
	assert.Equal(t, uint64(0), r.Generation())
	r.Release()

	w := st.AcquireWrite()
	assert.Equal(t, initial, w.Particles())
	w.Release()

	// Mutating the caller's slice must not leak into the store.
	initial[0].Position.X = 9999
	r = st.AcquireRead()
	assert.Equal(t, float32(0), r.Particles()[0].Position.X)
	r.Release()
}

// TestNewStoreRejectsEmptyInitial verifies construction fails fast without a
// valid initial state.
func TestNewStoreRejectsEmptyInitial(t *testing.T) {
	assert.PanicsWithValue(t, "store: NewStore requires a non-empty initial state", func() {
		NewStore(nil)
	})
}

// TestSwapExchangesLabelsWithoutCopy verifies Swap is a label exchange: the
// written slot's backing array becomes the readable array, and the prior
// readable array becomes the next write target. No element is copied.
func TestSwapExchangesLabelsWithoutCopy(t *testing.T) {
	st := NewStore(testParticles(3))

	w := st.AcquireWrite()
	w.Particles()[0].Position.X = 111
	writtenFirst := &w.Particles()[0]
	w.Release()
	st.Swap()

	r := st.AcquireRead()
	assert.Same(t, writtenFirst, &r.Particles()[0], "written slot must become the read slot")
	assert.Equal(t, float32(111), r.Particles()[0].Position.X)

	// The next write target is the other slot; a concurrent read lease and
	// write lease must never alias.
	w2 := st.AcquireWrite()
	assert.NotSame(t, &r.Particles()[0], &w2.Particles()[0])
	w2.Release()
	r.Release()
}

// TestGenerationAccounting verifies the published generation increments by
// exactly 1 per swap and the leases report the generations they carry.
func TestGenerationAccounting(t *testing.T) {
	st := NewStore(testParticles(2))

	for cycle := uint64(1); cycle <= 3; cycle++ {
		w := st.AcquireWrite()
		assert.Equal(t, cycle, w.Generation(), "write lease produces the next generation")
		w.SetOverlaps(int(cycle) * 2)
		w.Release()
		st.Swap()

		require.Equal(t, cycle, st.Generation())

		r := st.AcquireRead()
		assert.Equal(t, cycle, r.Generation())
		assert.Equal(t, int(cycle)*2, r.Overlaps())
		r.Release()
	}
}

// TestAcquireWriteExclusive verifies the second concurrent write lease fails
// fast.
func TestAcquireWriteExclusive(t *testing.T) {
	st := NewStore(testParticles(2))
	w := st.AcquireWrite()
	defer w.Release()

	assert.PanicsWithValue(t, "store: AcquireWrite called while a write lease is outstanding", func() {
		st.AcquireWrite()
	})
}

// TestSwapOrderingViolations verifies Swap panics when called out of protocol
// order: with a lease outstanding, or without a completed write.
func TestSwapOrderingViolations(t *testing.T) {
	st := NewStore(testParticles(2))

	assert.Panics(t, func() { st.Swap() }, "swap before any write must panic")

	w := st.AcquireWrite()
	assert.Panics(t, func() { st.Swap() }, "swap with a write lease outstanding must panic")
	w.Release()

	r := st.AcquireRead()
	assert.Panics(t, func() { st.Swap() }, "swap with a read lease outstanding must panic")
	r.Release()

	st.Swap()
}

// TestLeaseRelease verifies double releases and use-after-release fail fast.
func TestLeaseRelease(t *testing.T) {
	st := NewStore(testParticles(2))

	w := st.AcquireWrite()
	w.Release()
	assert.PanicsWithValue(t, "store: write lease released twice", func() { w.Release() })
	assert.Panics(t, func() { w.Particles() })

	r := st.AcquireRead()
	r.Release()
	assert.PanicsWithValue(t, "store: read lease released twice", func() { r.Release() })
	assert.Panics(t, func() { r.Particles() })
}

// TestConcurrentReadLeases verifies multiple read leases coexist and release
// independently.
func TestConcurrentReadLeases(t *testing.T) {
	st := NewStore(testParticles(2), WithTransitionLog(true))

	r1 := st.AcquireRead()
	r2 := st.AcquireRead()
	assert.Same(t, &r1.Particles()[0], &r2.Particles()[0], "readers share the read slot")
	r1.Release()
	r2.Release()

	w := st.AcquireWrite()
	w.Release()
	st.Swap()
}
