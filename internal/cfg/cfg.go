// Package cfg models a contract control-flow graph as computed by an
// external bytecode analyzer: basic blocks keyed by their start offset, each
// terminated by one of a closed set of edge shapes.
package cfg

import (
	"maps"
	"slices"
)

// Kind names a BlockType variant. The values match the JSON tags.
type Kind string

const (
	KindJump         Kind = "Jump"
	KindJumpi        Kind = "Jumpi"
	KindDynamicJump  Kind = "DynamicJump"
	KindDynamicJumpi Kind = "DynamicJumpi"
	KindTerminate    Kind = "Terminate"
)

// BlockType describes how a block exits. It is implemented only by Jump,
// Jumpi, DynamicJump, DynamicJumpi and Terminate.
type BlockType interface {
	Kind() Kind
	// Successors returns the statically known destinations in the order a
	// work-list should push them. Unresolved dynamic candidates are omitted.
	Successors() []uint64
	blockType()
}

// Jump is an unconditional jump.
type Jump struct {
	To uint64 `json:"to"`
}

// Jumpi is a conditional jump with a taken and a fall-through destination.
type Jumpi struct {
	TrueTo  uint64 `json:"true_to"`
	FalseTo uint64 `json:"false_to"`
}

// DynamicTarget is one candidate of a computed jump. To is nil when the
// analyzer could not resolve it.
type DynamicTarget struct {
	Path []uint64 `json:"path,omitempty"`
	To   *uint64  `json:"to"`
}

// DynamicJump is a computed unconditional jump.
type DynamicJump struct {
	To []DynamicTarget `json:"to"`
}

// DynamicJumpi is a computed conditional jump; only the taken side is dynamic.
type DynamicJumpi struct {
	TrueTo  []DynamicTarget `json:"true_to"`
	FalseTo uint64          `json:"false_to"`
}

// Terminate ends an execution path.
type Terminate struct {
	Success bool `json:"success"`
}

func (Jump) Kind() Kind         { return KindJump }
func (Jumpi) Kind() Kind        { return KindJumpi }
func (DynamicJump) Kind() Kind  { return KindDynamicJump }
func (DynamicJumpi) Kind() Kind { return KindDynamicJumpi }
func (Terminate) Kind() Kind    { return KindTerminate }

func (Jump) blockType()         {}
func (Jumpi) blockType()        {}
func (DynamicJump) blockType()  {}
func (DynamicJumpi) blockType() {}
func (Terminate) blockType()    {}

func (j Jump) Successors() []uint64 { return []uint64{j.To} }

func (j Jumpi) Successors() []uint64 { return []uint64{j.TrueTo, j.FalseTo} }

func (j DynamicJump) Successors() []uint64 { return resolved(j.To, nil) }

func (j DynamicJumpi) Successors() []uint64 {
	return append(resolved(j.TrueTo, nil), j.FalseTo)
}

func (Terminate) Successors() []uint64 { return nil }

func resolved(targets []DynamicTarget, dst []uint64) []uint64 {
	for _, t := range targets {
		if t.To != nil {
			dst = append(dst, *t.To)
		}
	}
	return dst
}

// Block is a contiguous instruction range [Start, End] and its exit.
type Block struct {
	Start uint64
	End   uint64
	Type  BlockType
}

// Graph maps block start offsets to blocks. Edges may point at offsets that
// are not keys; such targets are simply unreachable.
type Graph map[uint64]Block

// Starts returns the block start offsets in ascending order.
func (g Graph) Starts() []uint64 {
	return slices.Sorted(maps.Keys(g))
}

// Successors returns the destinations of the block at start, or nil when
// there is no such block.
func (g Graph) Successors(start uint64) []uint64 {
	b, ok := g[start]
	if !ok || b.Type == nil {
		return nil
	}
	return b.Type.Successors()
}
