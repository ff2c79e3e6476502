package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/models"
)

// keyPrefix namespaces suggestion records inside the pebble keyspace so
// the same DB directory could carry other state later.
const keyPrefix = "suggestion:"

// Pebble persists each suggestion record as one JSON value under
// "suggestion:<id>". SaveAll still honors the full-rewrite contract: the
// whole prefix is deleted and rewritten in a single synced batch.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database at path.
func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_backend_opened", "path", path)
	return &Pebble{db: db}, nil
}

// LoadAll scans the suggestion prefix and decodes each value. Malformed
// values are skipped with a warning.
func (p *Pebble) LoadAll() (map[string]models.SuggestionRecord, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble backend: iterator: %w", err)
	}
	defer iter.Close()

	out := map[string]models.SuggestionRecord{}
	for iter.First(); iter.Valid(); iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), keyPrefix)
		var rec models.SuggestionRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			logger.Warn("pebble_record_skipped", "key", key, "error", err)
			continue
		}
		out[key] = rec
	}
	return out, iter.Error()
}

// SaveAll deletes the prefix range and writes every record in one batch
// committed with a sync so the document survives a crash.
func (p *Pebble) SaveAll(records map[string]models.SuggestionRecord) error {
	b := p.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange([]byte(keyPrefix), []byte(keyPrefix+"\xff"), nil); err != nil {
		return fmt.Errorf("pebble backend: delete range: %w", err)
	}
	for id, rec := range records {
		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("pebble backend: marshal %s: %w", id, err)
		}
		if err := b.Set([]byte(keyPrefix+id), v, nil); err != nil {
			return fmt.Errorf("pebble backend: set %s: %w", id, err)
		}
	}
	return b.Commit(pebble.Sync)
}

// Close closes the underlying database.
func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
