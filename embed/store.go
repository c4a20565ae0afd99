package embed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/gaurav-prasanna/docpipe/core/logger"
)

// StoredRecord is the value kept per chunk.
type StoredRecord struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Vector   []float64      `json:"vector,omitempty"`
}

// Store keeps records in badger under the key <collection>/<id>.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts the zap-backed logger to badger.Logger.
type badgerLogger struct {
	logger *logger.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...), "component", "badger")
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...), "component", "badger")
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...), "component", "badger")
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...), "component", "badger")
}

// OpenStore opens (creating if needed) the database in dir.
func OpenStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger.OrNop(log)}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

// Put writes records in one transaction, replacing existing ids.
func (s *Store) Put(collection string, records []StoredRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			value, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", r.ID, err)
			}
			if err := txn.Set(recordKey(collection, r.ID), value); err != nil {
				return fmt.Errorf("storing %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Get returns the record for id, or nil when absent.
func (s *Store) Get(collection, id string) (*StoredRecord, error) {
	var record *StoredRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(collection, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			record = &StoredRecord{}
			return json.Unmarshal(val, record)
		})
	})
	return record, err
}

// Count returns the number of records in collection.
func (s *Store) Count(collection string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(collection + "/")
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}
