package store

// StoreBuilderOption is a function that modifies the store configuration.
// They are applied in NewStore via the option-builder pattern.
type StoreBuilderOption func(*store)

// WithTransitionLog enables logging of every slot-ownership transition
// (acquire, release, swap) with the slot index and generation. Intended for
// diagnosing handoff ordering; the log output is the audit trail that read
// and write ownership never overlap.
//
// Parameters:
//   - enabled: true to log ownership transitions
//
// Returns:
//   - StoreBuilderOption: the configured option
func WithTransitionLog(enabled bool) StoreBuilderOption {
	return func(s *store) {
		s.transitionLog = enabled
	}
}
