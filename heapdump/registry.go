// ABOUTME: Registry for runtime image parsers
// ABOUTME: Manages parser plugins and selects the appropriate parser for an image

package heapdump

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var (
	// ErrNoParser is returned when no parser can handle the image format
	ErrNoParser = errors.New("no parser found for image format")
)

// parserRegistry holds registered parsers
type parserRegistry struct {
	mu      sync.RWMutex
	parsers []Parser
}

// Global registry instance
var registry = &parserRegistry{
	parsers: make([]Parser, 0),
}

// Register adds a parser to the registry
func Register(p Parser) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.parsers = append(registry.parsers, p)
}

// Open reads an image using the first registered parser that accepts it
func Open(r io.Reader) (*Image, error) {
	// Keep the detection prefix so each parser sees the stream from the start
	detectBuf := make([]byte, 4096)
	n, err := io.ReadFull(r, detectBuf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	for _, parser := range registry.parsers {
		if parser.CanParse(bytes.NewReader(detectBuf[:n])) {
			return parser.Parse(io.MultiReader(bytes.NewReader(detectBuf[:n]), r))
		}
	}

	return nil, ErrNoParser
}
