package storage

import (
	"fmt"

	"suggestbox/pkg/models"
)

// Backend is the durable-store collaborator: a document keyed by
// suggestion id that the in-memory store mirrors 1:1. Every mutation in
// pkg/store triggers a full SaveAll rewrite; there is no incremental
// write path. Volume is small, durability wins over throughput.
type Backend interface {
	// LoadAll reads the whole document. Backends skip individual
	// malformed records with a warning instead of failing the load.
	LoadAll() (map[string]models.SuggestionRecord, error)
	// SaveAll rewrites the whole document from the given records,
	// removing any record not present in the map.
	SaveAll(records map[string]models.SuggestionRecord) error
	Close() error
}

// Open creates the backend named by kind ("yaml" or "pebble") at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case "", "yaml":
		return OpenYAMLFile(path)
	case "pebble":
		return OpenPebble(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
