package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/models"
)

// yamlDocument is the on-disk layout of the suggestions file:
//
//	suggestions:
//	  s-001: {id: s-001, title: ..., upvotes: [...], ...}
//
// The whole file is rewritten on every save.
type yamlDocument struct {
	Suggestions map[string]yaml.Node `yaml:"suggestions"`
}

// YAMLFile persists the suggestion document as a single YAML file.
type YAMLFile struct {
	path string
}

// OpenYAMLFile prepares a YAML file backend at path, creating the parent
// directory and an empty document when the file does not exist yet.
func OpenYAMLFile(path string) (*YAMLFile, error) {
	if path == "" {
		return nil, fmt.Errorf("yaml backend: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("yaml backend: create dir %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("suggestions: {}\n"), 0o600); err != nil {
			return nil, fmt.Errorf("yaml backend: create file %s: %w", path, err)
		}
	}
	logger.Info("yaml_backend_opened", "path", path)
	return &YAMLFile{path: path}, nil
}

// LoadAll reads the document and decodes each record. A record that does
// not decode is skipped with a warning; the rest of the file still loads.
func (y *YAMLFile) LoadAll() (map[string]models.SuggestionRecord, error) {
	b, err := os.ReadFile(y.path)
	if err != nil {
		return nil, fmt.Errorf("yaml backend: read %s: %w", y.path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("yaml backend: parse %s: %w", y.path, err)
	}
	out := make(map[string]models.SuggestionRecord, len(doc.Suggestions))
	for key, node := range doc.Suggestions {
		var rec models.SuggestionRecord
		if err := node.Decode(&rec); err != nil {
			logger.Warn("yaml_record_skipped", "key", key, "error", err)
			continue
		}
		out[key] = rec
	}
	return out, nil
}

// SaveAll rewrites the whole document. The write goes through a temp
// file in the same directory followed by a rename so a crash mid-write
// never leaves a truncated document behind.
func (y *YAMLFile) SaveAll(records map[string]models.SuggestionRecord) error {
	doc := struct {
		Suggestions map[string]models.SuggestionRecord `yaml:"suggestions"`
	}{Suggestions: records}
	if doc.Suggestions == nil {
		doc.Suggestions = map[string]models.SuggestionRecord{}
	}
	b, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("yaml backend: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(y.path), ".suggestions-*")
	if err != nil {
		return fmt.Errorf("yaml backend: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("yaml backend: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("yaml backend: close: %w", err)
	}
	if err := os.Rename(tmpName, y.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("yaml backend: rename: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (y *YAMLFile) Close() error { return nil }
