// Package analysis traces the reachable execution paths of contract
// functions through a control-flow graph and scans those paths for opcode
// patterns.
package analysis

// Constants for analysis operations
const (
	// MaxTraceSteps is the global number of work-list pops a trace may expand
	// beyond the first before it stops exploring. It bounds cyclic graphs.
	MaxTraceSteps = 100

	// LookaheadWindow bounds how far past the first opcode the second opcode
	// is searched for: candidates are i+1 up to, but excluding, i+LookaheadWindow.
	LookaheadWindow = 10

	// DefaultContextSize is the number of instructions reported on each side
	// of a pattern match.
	DefaultContextSize = 5
)
