package cfg

import (
	"fmt"
	"strconv"
	"strings"
)

// Describe renders a block type as a one-line flow summary.
func Describe(bt BlockType) string {
	switch t := bt.(type) {
	case Jump:
		return fmt.Sprintf("Jump to %d", t.To)
	case Jumpi:
		return fmt.Sprintf("Conditional: true->%d, false->%d", t.TrueTo, t.FalseTo)
	case DynamicJump:
		return fmt.Sprintf("Dynamic: [%s]", joinResolved(t.To))
	case DynamicJumpi:
		return fmt.Sprintf("Dynamic Conditional: true->[%s], false->%d", joinResolved(t.TrueTo), t.FalseTo)
	case Terminate:
		if t.Success {
			return "Terminate (success)"
		}
		return "Terminate (failure)"
	default:
		return "Unknown"
	}
}

func joinResolved(targets []DynamicTarget) string {
	parts := make([]string, 0, len(targets))
	for _, off := range resolved(targets, nil) {
		parts = append(parts, strconv.FormatUint(off, 10))
	}
	return strings.Join(parts, ", ")
}
