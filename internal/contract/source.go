package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Source yields analysis documents. The bytecode analyzer itself lives
// outside this module; a Source only reads what it produced.
type Source interface {
	Load(ctx context.Context) (*Info, error)
}

// Decode reads one analysis document from r.
func Decode(r io.Reader) (*Info, error) {
	var info Info
	dec := json.NewDecoder(r)
	if err := dec.Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode analysis document: %w", err)
	}
	return &info, nil
}

// DecodeBytes parses one analysis document.
func DecodeBytes(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode analysis document: %w", err)
	}
	return &info, nil
}

// FileSource reads a document from a path; "-" means stdin.
type FileSource struct {
	Path  string
	Stdin io.Reader
}

// NewFileSource returns a Source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Stdin: os.Stdin}
}

func (s *FileSource) Load(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Path == "-" {
		return Decode(s.Stdin)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()

	info, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return info, nil
}

// BytesSource is an in-memory document, such as one line of a JSON-lines stream.
type BytesSource []byte

func (s BytesSource) Load(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeBytes(s)
}
