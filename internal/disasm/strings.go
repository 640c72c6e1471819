package disasm

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MinStringLength is the shortest PUSH immediate reported as text.
const MinStringLength = 4

// Immediate returns the operand bytes of a PUSH instruction.
func (i Inst) Immediate() ([]byte, bool) {
	if !strings.HasPrefix(i.Op(), "PUSH") {
		return nil, false
	}
	_, arg, ok := strings.Cut(i.Text, " ")
	if !ok {
		return nil, false
	}
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "0x")
	if len(arg)%2 == 1 {
		arg = "0" + arg
	}
	b, err := hexutil.Decode("0x" + arg)
	if err != nil {
		return nil, false
	}
	return b, true
}

// ImmediateString returns the PUSH immediate as text when it looks like an
// embedded string, such as a revert reason chunk. Trailing zero padding is
// dropped.
func (i Inst) ImmediateString() (string, bool) {
	b, ok := i.Immediate()
	if !ok {
		return "", false
	}
	b = bytes.TrimRight(b, "\x00")
	if len(b) < MinStringLength || !utf8.Valid(b) {
		return "", false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return "", false
		}
	}
	return string(b), true
}
