package codegen

import (
	"fmt"

	"mvdan.cc/gofumpt/format"
)

// FormatGoBuffer formats generated Go source with gofumpt.
func FormatGoBuffer(content []byte) ([]byte, error) {
	formatted, err := format.Source(content, format.Options{})
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return formatted, nil
}
