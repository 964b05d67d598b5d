package ast

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// The matcher hands the resolved AST to the generator as a CBOR document.
// Canonical encoding keeps the bytes deterministic for identical input.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ast: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalModule serializes a resolved Module to CBOR bytes.
func MarshalModule(m *Module) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalModule deserializes a Module from CBOR bytes.
func UnmarshalModule(data []byte) (*Module, error) {
	var m Module
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ast: unmarshal module: %w", err)
	}
	return &m, nil
}

// LoadModule reads a resolved Module from a file written by the matcher.
func LoadModule(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast: read %s: %w", path, err)
	}
	m, err := UnmarshalModule(data)
	if err != nil {
		return nil, fmt.Errorf("ast: %s: %w", path, err)
	}
	return m, nil
}
