// Package queuestore provides durable persistence for the offline retry
// queue. The Badger store survives process restarts; the memory store backs
// tests and ephemeral tooling.
package queuestore

import (
	"encoding/json"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

const pendingPrefix = "pending/"

// BadgerStore persists pending poster logs in a local Badger database
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger adapts zap to badger's Logger interface
type badgerLogger struct {
	l *zap.SugaredLogger
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }

// OpenBadger opens (or creates) the queue database at path. An empty path
// opens an in-memory database, useful for development runs.
func OpenBadger(path string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{l: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Load returns all pending entries in enqueue order
func (s *BadgerStore) Load() ([]model.PendingPosterLog, error) {
	var entries []model.PendingPosterLog

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry model.PendingPosterLog
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("failed to decode pending entry: %w", err)
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load pending entries: %w", err)
	}

	// Badger iterates in key order; restore enqueue order
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Put inserts or replaces an entry
func (s *BadgerStore) Put(entry model.PendingPosterLog) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode pending entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pendingPrefix+entry.ID), val)
	})
	if err != nil {
		return fmt.Errorf("failed to persist pending entry: %w", err)
	}
	return nil
}

// Delete removes an entry; deleting a missing entry is not an error
func (s *BadgerStore) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(pendingPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete pending entry: %w", err)
	}
	return nil
}
