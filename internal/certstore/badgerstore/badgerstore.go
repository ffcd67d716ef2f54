// Package badgerstore keeps solver certificates in an embedded Badger
// key-value store.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/danielpatrickdp/aisp-verify/internal/certstore"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
)

const prefix = "cert/"

// #region config
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

func DefaultConfig() Config {
	return Config{SyncWrites: true}
}

// #endregion config

// #region logger
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// #endregion logger

// #region store
// Store implements certstore.Backend on Badger.
type Store struct {
	db *badger.DB
}

var _ certstore.Backend = (*Store)(nil)

type record struct {
	Mode      smt.Mode    `json:"mode"`
	Verdict   smt.Verdict `json:"verdict"`
	CreatedAt time.Time   `json:"created_at"`
}

// Open opens or creates the store described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent certificate store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetVerdict(_ context.Context, key string) (smt.Verdict, bool, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return smt.Verdict{}, false, nil
	}
	if err != nil {
		return smt.Verdict{}, false, fmt.Errorf("get certificate: %w", err)
	}
	return rec.Verdict, true, nil
}

// PutVerdict stores v unless key already holds a certificate.
func (s *Store) PutVerdict(_ context.Context, key string, mode smt.Mode, v smt.Verdict) error {
	raw, err := json.Marshal(record{Mode: mode, Verdict: v, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(prefix + key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(prefix+key), raw)
	})
	if err != nil {
		return fmt.Errorf("put certificate: %w", err)
	}
	return nil
}

func (s *Store) List(_ context.Context, limit int) ([]certstore.Certificate, error) {
	var out []certstore.Certificate
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var rec record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal certificate %s: %w", key, err)
				}
				out = append(out, certstore.Certificate{Key: key, Mode: rec.Mode, Verdict: rec.Verdict, CreatedAt: rec.CreatedAt})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return n, nil
}

func (s *Store) Purge(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.DropPrefix([]byte(prefix)); err != nil {
		return 0, fmt.Errorf("purge certificates: %w", err)
	}
	return n, nil
}

// #endregion store
