package detectors

import (
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"evmtrace/internal/analysis"
)

// PatternDetector runs one Pattern through analysis.Search.
type PatternDetector struct {
	pattern     Pattern
	contextSize int
	targets     []string
}

// NewPatternDetector creates a detector for p. targets replaces the
// pattern's own target list when non-empty; when both are empty every
// traced selector is searched.
func NewPatternDetector(p Pattern, contextSize int, targets ...string) *PatternDetector {
	if len(targets) == 0 {
		targets = p.Targets
	}
	return &PatternDetector{
		pattern:     p,
		contextSize: p.ContextSize(contextSize),
		targets:     targets,
	}
}

func (d *PatternDetector) Name() string {
	return d.pattern.Label()
}

// Pattern returns the searched pattern.
func (d *PatternDetector) Pattern() Pattern {
	return d.pattern
}

func (d *PatternDetector) Detect(traces []analysis.FunctionTrace) []analysis.PatternMatch {
	var set mapset.Set[string]
	if len(d.targets) == 0 {
		set = analysis.TargetSet(analysis.SelectorsOf(traces)...)
	} else {
		set = analysis.TargetSet(d.targets...)
	}

	matches := analysis.Search(set, traces, d.pattern.First, d.pattern.Second, d.contextSize, d.pattern.Label())
	slog.Debug("Pattern searched",
		"pattern", d.pattern.Name,
		"targets", set.Cardinality(),
		"matches", len(matches))
	return matches
}

// Chain builds a detector chain for patterns sharing targets and context.
func Chain(patterns []Pattern, contextSize int, targets ...string) *analysis.DetectorChain {
	dets := make([]analysis.Detector, 0, len(patterns))
	for _, p := range patterns {
		dets = append(dets, NewPatternDetector(p, contextSize, targets...))
	}
	return analysis.NewDetectorChain(dets...)
}
