// package simulation implements the three-pass stage that produces each
// generation: Prepare clamps state into the domain, Integrate advances the
// physics, and Stats counts overlapping pairs. All passes touch only the
// array they are handed; serialization against the render side is the
// scheduler's job, so no pass takes a lock.
package simulation

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
)

// Default stage parameters.
const (
	// DefaultGravity is the vertical acceleration in domain units/s²
	// (y-up domain, 100 units per metre).
	DefaultGravity = -980.0
	// DefaultRestitution is the elastic wall-bounce coefficient.
	DefaultRestitution = 1.0
	// DefaultMaxDeltaTime bounds the per-step displacement so a slow frame
	// cannot tunnel particles through a wall.
	DefaultMaxDeltaTime = 0.05
	// defaultParallelThreshold is the particle count below which the passes
	// run serially; the fan-out overhead only pays off on larger arrays.
	defaultParallelThreshold = 1024
	// poolQueueSize accommodates one task per chunk with headroom.
	poolQueueSize = 256
)

// stage implements the Stage interface.
type stage struct {
	domainWidth  float32
	domainHeight float32
	gravity      float32
	restitution  float32
	maxDeltaTime float32

	// computePool manages a bounded set of reusable goroutines for the
	// parallel per-particle passes. Workers persist across generations,
	// avoiding per-generation goroutine spawn/teardown overhead.
	computePool       worker.DynamicWorkerPool
	computeWorkers    int
	parallelThreshold int
}

// Stage runs the ordered simulation passes against a writable particle array.
// The canonical per-generation order is Prepare, then Integrate, then Stats;
// Step applies all three. Given identical inputs the results are
// bit-deterministic — there is no randomness after spawn.
type Stage interface {
	// Prepare clamps every particle's position into the domain rectangle
	// [0,width]×[0,height]. Idempotent: re-applying without an intervening
	// Integrate yields the same result.
	//
	// Parameters:
	//   - particles: the writable particle array
	Prepare(particles []particle.Particle)

	// Integrate advances the physics by deltaTime: gravity accelerates the
	// vertical velocity, positions advance by velocity × deltaTime, and any
	// wall contact reflects the corresponding velocity component scaled by
	// the restitution coefficient, clamping the particle back onto the wall.
	// deltaTime is clamped to the configured maximum before use.
	//
	// Parameters:
	//   - particles: the writable particle array
	//   - deltaTime: the elapsed time in seconds since the previous generation
	Integrate(particles []particle.Particle, deltaTime float32)

	// Stats counts the particle pairs whose center distance is strictly less
	// than the sum of their radii.
	//
	// Parameters:
	//   - particles: the particle array to scan
	//
	// Returns:
	//   - int: the overlapping-pair count
	Stats(particles []particle.Particle) int

	// Step runs the canonical pass order (Prepare, Integrate, Stats) for one
	// generation.
	//
	// Parameters:
	//   - particles: the writable particle array
	//   - deltaTime: the elapsed time in seconds since the previous generation
	//
	// Returns:
	//   - int: the overlapping-pair count from the Stats pass
	Step(particles []particle.Particle, deltaTime float32) int

	// DomainWidth returns the domain rectangle width.
	//
	// Returns:
	//   - float32: the domain width
	DomainWidth() float32

	// DomainHeight returns the domain rectangle height.
	//
	// Returns:
	//   - float32: the domain height
	DomainHeight() float32
}

// Ensure stage implements Stage interface.
var _ Stage = &stage{}

// NewStage creates a Stage with the provided options. Defaults: an 800×600
// domain, gravity -980, restitution 1.0, 50 ms deltaTime cap, and a worker
// count of NumCPU-1 for the parallel path.
//
// Parameters:
//   - options: functional options for stage configuration
//
// Returns:
//   - Stage: the newly created stage
func NewStage(options ...StageBuilderOption) Stage {
	s := &stage{
		domainWidth:       particle.DefaultDomainWidth,
		domainHeight:      particle.DefaultDomainHeight,
		gravity:           DefaultGravity,
		restitution:       DefaultRestitution,
		maxDeltaTime:      DefaultMaxDeltaTime,
		computeWorkers:    max(runtime.NumCPU()-1, 1),
		parallelThreshold: defaultParallelThreshold,
	}

	for _, opt := range options {
		opt(s)
	}

	// Initialize the compute pool after options so WithWorkers can override
	// the default. A single worker runs serially without a pool.
	if s.computeWorkers > 1 {
		s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, poolQueueSize, 1*time.Second)
	}

	return s
}

func (s *stage) DomainWidth() float32 {
	return s.domainWidth
}

func (s *stage) DomainHeight() float32 {
	return s.domainHeight
}

func (s *stage) Prepare(particles []particle.Particle) {
	s.forEachChunk(len(particles), func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &particles[i]
			p.Position.X = common.Clamp(p.Position.X, 0, s.domainWidth)
			p.Position.Y = common.Clamp(p.Position.Y, 0, s.domainHeight)
		}
	})
}

func (s *stage) Integrate(particles []particle.Particle, deltaTime float32) {
	dt := common.Clamp(deltaTime, 0, s.maxDeltaTime)

	s.forEachChunk(len(particles), func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &particles[i]

			p.Velocity.Y += s.gravity * dt
			p.Position.X += p.Velocity.X * dt
			p.Position.Y += p.Velocity.Y * dt

			if p.Position.X-p.Radius < 0 {
				p.Position.X = p.Radius
				p.Velocity.X = -p.Velocity.X * s.restitution
			} else if p.Position.X+p.Radius > s.domainWidth {
				p.Position.X = s.domainWidth - p.Radius
				p.Velocity.X = -p.Velocity.X * s.restitution
			}

			if p.Position.Y-p.Radius < 0 {
				p.Position.Y = p.Radius
				p.Velocity.Y = -p.Velocity.Y * s.restitution
			} else if p.Position.Y+p.Radius > s.domainHeight {
				p.Position.Y = s.domainHeight - p.Radius
				p.Velocity.Y = -p.Velocity.Y * s.restitution
			}
		}
	})
}

func (s *stage) Stats(particles []particle.Particle) int {
	n := len(particles)
	partial := make([]int, s.chunkCount(n))

	// Row chunking: chunk c scans pairs (i, j>i) for its rows. Partial counts
	// are summed after the barrier, so the total is order-independent and
	// identical between the serial and parallel paths.
	s.forEachChunk(n, func(chunk, start, end int) {
		count := 0
		for i := start; i < end; i++ {
			for j := i + 1; j < n; j++ {
				if particles[i].Overlaps(particles[j]) {
					count++
				}
			}
		}
		partial[chunk] = count
	})

	total := 0
	for _, c := range partial {
		total += c
	}
	return total
}

func (s *stage) Step(particles []particle.Particle, deltaTime float32) int {
	s.Prepare(particles)
	s.Integrate(particles, deltaTime)
	return s.Stats(particles)
}

// chunkCount returns how many chunks forEachChunk will fan n elements into.
func (s *stage) chunkCount(n int) int {
	if s.computePool == nil || n < s.parallelThreshold {
		return 1
	}
	return min(s.computeWorkers, n)
}

// forEachChunk fans fn out across the compute pool in contiguous index
// ranges, blocking until every chunk completes. Small arrays and single-worker
// stages run fn once on the calling goroutine. A WaitGroup provides the
// per-pass barrier since pool.Wait() blocks until workers idle-exit, which is
// unsuitable for generation-rate workloads.
func (s *stage) forEachChunk(n int, fn func(chunk, start, end int)) {
	chunks := s.chunkCount(n)
	if chunks == 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + chunks - 1) / chunks
	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		chunk, lo, hi := c, start, end
		s.computePool.SubmitTask(worker.Task{
			ID: chunk,
			Do: func() (any, error) {
				defer wg.Done()
				fn(chunk, lo, hi)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
