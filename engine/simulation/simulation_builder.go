package simulation

// StageBuilderOption is a function that modifies the stage configuration.
// They are applied in NewStage via the option-builder pattern.
type StageBuilderOption func(*stage)

// WithDomain sets the domain rectangle particles are simulated inside.
//
// Parameters:
//   - width: domain width (must be > 0)
//   - height: domain height (must be > 0)
//
// Returns:
//   - StageBuilderOption: the configured option
func WithDomain(width, height float32) StageBuilderOption {
	return func(s *stage) {
		if width > 0 {
			s.domainWidth = width
		}
		if height > 0 {
			s.domainHeight = height
		}
	}
}

// WithGravity sets the uniform vertical acceleration in domain units/s².
// Negative values pull particles toward y=0.
//
// Parameters:
//   - gravity: the acceleration applied to every particle's vertical velocity
//
// Returns:
//   - StageBuilderOption: the configured option
func WithGravity(gravity float32) StageBuilderOption {
	return func(s *stage) {
		s.gravity = gravity
	}
}

// WithRestitution sets the wall-bounce coefficient. 1.0 is a perfectly
// elastic bounce; values below 1 bleed energy on each contact.
//
// Parameters:
//   - restitution: the bounce coefficient (must be >= 0)
//
// Returns:
//   - StageBuilderOption: the configured option
func WithRestitution(restitution float32) StageBuilderOption {
	return func(s *stage) {
		if restitution >= 0 {
			s.restitution = restitution
		}
	}
}

// WithMaxDeltaTime sets the upper bound applied to deltaTime before
// integration, bounding per-step displacement.
//
// Parameters:
//   - maxDeltaTime: the clamp in seconds (must be > 0)
//
// Returns:
//   - StageBuilderOption: the configured option
func WithMaxDeltaTime(maxDeltaTime float32) StageBuilderOption {
	return func(s *stage) {
		if maxDeltaTime > 0 {
			s.maxDeltaTime = maxDeltaTime
		}
	}
}

// WithWorkers sets the number of pool workers for the parallel per-particle
// passes. A value of 1 disables the pool entirely and runs every pass on the
// calling goroutine.
//
// Parameters:
//   - workers: the worker count (must be >= 1)
//
// Returns:
//   - StageBuilderOption: the configured option
func WithWorkers(workers int) StageBuilderOption {
	return func(s *stage) {
		if workers >= 1 {
			s.computeWorkers = workers
		}
	}
}

// WithParallelThreshold sets the particle count at which the passes switch
// from the serial path to the pool fan-out.
//
// Parameters:
//   - threshold: the minimum array length for parallel execution (must be >= 0)
//
// Returns:
//   - StageBuilderOption: the configured option
func WithParallelThreshold(threshold int) StageBuilderOption {
	return func(s *stage) {
		if threshold >= 0 {
			s.parallelThreshold = threshold
		}
	}
}
