// ABOUTME: Embedded Badger key-value Repository for single-process installs.
// ABOUTME: Stores records and sync runs under prefixed keys in one Badger directory.
package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/healthsync/internal/models"
)

// Badger implements Repository on an embedded Badger database.
type Badger struct {
	db  *badger.DB
	dir string
}

// badgerLogger adapts a charm logger to badger's Logger interface.
type badgerLogger struct {
	*log.Logger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

// OpenBadger opens or creates a Badger database in dir.
func OpenBadger(dir string, logger *log.Logger) (*Badger, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger.WithPrefix("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, dir: dir}, nil
}

// Get implements Repository.
func (b *Badger) Get(kind Kind, d models.Domain) ([]byte, error) {
	key := recordKey(kind, d)
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return data, nil
}

// Put implements Repository.
func (b *Badger) Put(kind Kind, d models.Domain, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(recordKey(kind, d)), data)
	})
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete implements Repository.
func (b *Badger) Delete(kind Kind, d models.Domain) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(recordKey(kind, d)))
	})
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// RecordSyncRun implements Repository.
func (b *Badger) RecordSyncRun(run *models.SyncRun) error {
	data, err := EncodeSyncRun(run)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SyncRunKey(run)), data)
	})
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// ListSyncRuns implements Repository.
func (b *Badger) ListSyncRuns(d *models.Domain, limit int) ([]*models.SyncRun, error) {
	prefix := []byte(SyncRunPrefix)
	if d != nil {
		prefix = []byte(SyncRunPrefix + string(*d) + ":")
	}
	var values [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return DecodeSyncRuns(values, d, limit)
}

// Close implements Repository.
func (b *Badger) Close() error {
	return b.db.Close()
}
