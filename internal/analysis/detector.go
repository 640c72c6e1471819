package analysis

// Detector looks for one behavioral pattern in traced functions.
type Detector interface {
	// Name identifies the pattern in reports.
	Name() string
	// Detect scans traces and returns the located matches.
	Detect(traces []FunctionTrace) []PatternMatch
}

// DetectorChain runs multiple detectors in sequence
type DetectorChain struct {
	detectors []Detector
}

// NewDetectorChain creates a new detector chain
func NewDetectorChain(detectors ...Detector) *DetectorChain {
	return &DetectorChain{
		detectors: detectors,
	}
}

// Detectors returns the chained detectors in run order.
func (dc *DetectorChain) Detectors() []Detector {
	return dc.detectors
}

// Detect runs all detectors in sequence. The result is indexed by chain
// position, so detectors sharing a name keep separate entries.
func (dc *DetectorChain) Detect(traces []FunctionTrace) [][]PatternMatch {
	result := make([][]PatternMatch, len(dc.detectors))
	for i, detector := range dc.detectors {
		result[i] = detector.Detect(traces)
	}
	return result
}
