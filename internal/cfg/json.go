package cfg

import (
	"encoding/json"
	"fmt"
)

// blockJSON is the wire form of a Block. The exit is externally tagged:
// {"Jumpi": {"true_to": 17, "false_to": 13}}.
type blockJSON struct {
	Start uint64                   `json:"start"`
	End   uint64                   `json:"end"`
	BType map[Kind]json.RawMessage `json:"btype"`
}

// MarshalJSON encodes the block with an externally tagged btype.
func (b Block) MarshalJSON() ([]byte, error) {
	out := blockJSON{Start: b.Start, End: b.End}
	if b.Type != nil {
		raw, err := json.Marshal(b.Type)
		if err != nil {
			return nil, err
		}
		out.BType = map[Kind]json.RawMessage{b.Type.Kind(): raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a block. Exactly one btype tag must be present.
func (b *Block) UnmarshalJSON(data []byte) error {
	var in blockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.BType) != 1 {
		return fmt.Errorf("block %d: want exactly one btype, got %d", in.Start, len(in.BType))
	}

	var (
		bt  BlockType
		err error
	)
	for kind, raw := range in.BType {
		bt, err = decodeBlockType(kind, raw)
	}
	if err != nil {
		return fmt.Errorf("block %d: %w", in.Start, err)
	}

	b.Start, b.End, b.Type = in.Start, in.End, bt
	return nil
}

func decodeBlockType(kind Kind, raw json.RawMessage) (BlockType, error) {
	var v BlockType
	switch kind {
	case KindJump:
		v = &Jump{}
	case KindJumpi:
		v = &Jumpi{}
	case KindDynamicJump:
		v = &DynamicJump{}
	case KindDynamicJumpi:
		v = &DynamicJumpi{}
	case KindTerminate:
		v = &Terminate{}
	default:
		return nil, fmt.Errorf("unknown btype %q", kind)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return deref(v), nil
}

// deref turns the pointer used for decoding back into the value variant.
func deref(v BlockType) BlockType {
	switch t := v.(type) {
	case *Jump:
		return *t
	case *Jumpi:
		return *t
	case *DynamicJump:
		return *t
	case *DynamicJumpi:
		return *t
	case *Terminate:
		return *t
	}
	return v
}
