package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector is the 4-byte function identifier used by the contract dispatcher.
type Selector [4]byte

// String returns the canonical 0x-prefixed lowercase hex form.
func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

// ParseSelector accepts "0xfa461e33", "fa461e33" or a Solidity signature
// such as "owner()", which is hashed with keccak256.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	s = strings.TrimSpace(s)
	if s == "" {
		return sel, fmt.Errorf("empty selector")
	}

	if strings.Contains(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return sel, fmt.Errorf("malformed signature %q", s)
		}
		copy(sel[:], crypto.Keccak256([]byte(strings.ReplaceAll(s, " ", "")))[:4])
		return sel, nil
	}

	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(strings.ToLower(s))
	if err != nil {
		return sel, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	if len(b) != len(sel) {
		return sel, fmt.Errorf("invalid selector %q: want 4 bytes, got %d", s, len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

// NormalizeSelector parses s and returns its canonical text form.
func NormalizeSelector(s string) (string, error) {
	sel, err := ParseSelector(s)
	if err != nil {
		return "", err
	}
	return sel.String(), nil
}

func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Selector) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	if strings.Contains(text, "(") {
		return fmt.Errorf("selector: want hex, got signature %q", text)
	}
	sel, err := ParseSelector(text)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
