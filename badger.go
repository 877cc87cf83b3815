package apothecary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerStore is a Store persisted in a local Badger database. Table schemas are kept under a
// metadata prefix; items are gob-encoded under a per-table prefix, ordered by encoded key.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
	// Badger rejects every write while a prefix is dropped. Writes hold mu shared and
	// DeleteTable holds it exclusively.
	mu sync.RWMutex
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is the database directory. If empty, the store is held in memory.
	Dir string
	// InMemory forces in-memory mode even if Dir is set.
	InMemory bool
	// Logger receives Badger's own log output. If nil, logging is disabled.
	Logger *zap.Logger
}

const (
	badgerMetaPrefix = "t\x00"
	badgerItemPrefix = "i\x00"
)

// OpenBadgerStore opens (or creates) a Badger-backed store.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	logger := opts.Logger
	if logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{logger.Named("badger").Sugar()})
	} else {
		logger = zap.NewNop()
		badgerOpts = badgerOpts.WithLogger(nil)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts a zap logger to badger.Logger.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

func metaKey(tableName string) []byte {
	return []byte(badgerMetaPrefix + tableName)
}

func itemPrefix(tableName string) []byte {
	return []byte(badgerItemPrefix + tableName + "\x00")
}

func (s *BadgerStore) schema(txn *badger.Txn, tableName string) (Schema, error) {
	entry, err := txn.Get(metaKey(tableName))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Schema{}, fmt.Errorf("table %s: %w", tableName, ErrTableNotFound)
	}
	if err != nil {
		return Schema{}, err
	}
	var schema Schema
	err = entry.Value(func(val []byte) error {
		schema, err = FromJSON[Schema](val)
		return err
	})
	return schema, err
}

// update runs a read-write transaction unless a table is being dropped.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Update(fn)
}

func (s *BadgerStore) itemKey(schema Schema, item Item) ([]byte, error) {
	k, err := encodeKey(schema, item)
	if err != nil {
		return nil, err
	}
	return append(itemPrefix(schema.TableName), k...), nil
}

// DescribeTable reports an existing table and counts its items.
func (s *BadgerStore) DescribeTable(ctx context.Context, tableName string) (TableRef, error) {
	if err := ctx.Err(); err != nil {
		return TableRef{}, err
	}
	ref := TableRef{Name: tableName, Status: TableStatusActive}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := s.schema(txn, tableName); err != nil {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = itemPrefix(tableName)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ref.ItemCount++
		}
		return nil
	})
	if err != nil {
		return TableRef{}, err
	}
	return ref, nil
}

// CreateTable records the table schema.
func (s *BadgerStore) CreateTable(ctx context.Context, schema Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := schema.Check(); err != nil {
		return err
	}
	meta, err := ToJSON(schema)
	if err != nil {
		return fmt.Errorf("failed encoding schema %s: %w", schema.TableName, err)
	}
	err = s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(schema.TableName)); err == nil {
			return fmt.Errorf("table %s: %w", schema.TableName, ErrTableExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(metaKey(schema.TableName), meta)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("table created", zap.String("table", schema.TableName))
	return nil
}

// DeleteTable drops the table schema and all of its items.
func (s *BadgerStore) DeleteTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.schema(txn, tableName); err != nil {
			return err
		}
		return txn.Delete(metaKey(tableName))
	})
	if err != nil {
		return err
	}
	if err = s.db.DropPrefix(itemPrefix(tableName)); err != nil {
		return fmt.Errorf("failed dropping items of %s: %w", tableName, err)
	}
	s.logger.Debug("table deleted", zap.String("table", tableName))
	return nil
}

// GetItem returns the stored item, or nil if the key is absent.
func (s *BadgerStore) GetItem(ctx context.Context, tableName string, key Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item Item
	err := s.db.View(func(txn *badger.Txn) error {
		schema, err := s.schema(txn, tableName)
		if err != nil {
			return err
		}
		k, err := s.itemKey(schema, key)
		if err != nil {
			return err
		}
		entry, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			item, err = unmarshalItem(val)
			return err
		})
	})
	return item, err
}

// PutItem replaces the item stored under the item's key.
func (s *BadgerStore) PutItem(ctx context.Context, tableName string, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		schema, err := s.schema(txn, tableName)
		if err != nil {
			return err
		}
		k, err := s.itemKey(schema, item)
		if err != nil {
			return err
		}
		val, err := marshalItem(item)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		return txn.Set(k, val)
	})
}

// UpdateItem sets and removes attributes of the item stored under key, creating it if needed.
func (s *BadgerStore) UpdateItem(ctx context.Context, tableName string, key Item, set Item, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		schema, err := s.schema(txn, tableName)
		if err != nil {
			return err
		}
		k, err := s.itemKey(schema, key)
		if err != nil {
			return err
		}
		item := copyItem(key)
		entry, err := txn.Get(k)
		switch {
		case err == nil:
			if err = entry.Value(func(val []byte) error {
				item, err = unmarshalItem(val)
				return err
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		applyUpdate(item, set, remove)
		val, err := marshalItem(item)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		return txn.Set(k, val)
	})
}

// DeleteItem removes the item stored under key, if any.
func (s *BadgerStore) DeleteItem(ctx context.Context, tableName string, key Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		schema, err := s.schema(txn, tableName)
		if err != nil {
			return err
		}
		k, err := s.itemKey(schema, key)
		if err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

// Scan evaluates up to req.Limit items in key order after req.StartKey.
func (s *BadgerStore) Scan(ctx context.Context, tableName string, req ScanRequest) (ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}
	var res ScanResult
	err := s.db.View(func(txn *badger.Txn) error {
		schema, err := s.schema(txn, tableName)
		if err != nil {
			return err
		}
		prefix := itemPrefix(tableName)
		var start []byte
		if len(req.StartKey) > 0 {
			if start, err = s.itemKey(schema, req.StartKey); err != nil {
				return err
			}
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		page := newScanPage(schema, req)
		if start != nil {
			it.Seek(start)
		} else {
			it.Rewind()
		}
		for ; it.Valid(); it.Next() {
			if start != nil && bytes.Equal(it.Item().Key(), start) {
				continue
			}
			var item Item
			if err := it.Item().Value(func(val []byte) error {
				item, err = unmarshalItem(val)
				return err
			}); err != nil {
				return fmt.Errorf("decode item: %w", err)
			}
			if !page.add(item) {
				break
			}
		}
		res = page.result()
		return nil
	})
	return res, err
}
