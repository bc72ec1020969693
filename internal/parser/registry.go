package parser

import (
	"fmt"
	"strings"
)

// Registry holds the available parsers and picks one per file by content sniffing.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry over parsers, consulted in order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser detects the correct parser for a file. Read errors from one parser do not stop
// the others from being tried; the last one is returned if none match.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	var lastErr error
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			lastErr = err
			continue
		}
		if can {
			return p, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no suitable parser found for file: %s", filePath)
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}
