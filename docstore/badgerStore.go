package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BadgerConfig configures the embedded backend.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's internal logs. Nil silences them.
	Logger *logrus.Logger
}

type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

type badgerEnvelope struct {
	Data       Record `json:"data"`
	CreateTime string `json:"createTime"`
	UpdateTime string `json:"updateTime"`
}

var _ Store = (*BadgerStore)(nil)

func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// OpenInMemory opens a throwaway store, mostly for tests.
func OpenInMemory() (*BadgerStore, error) {
	return OpenBadger(BadgerConfig{InMemory: true})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func collectionPrefix(collection string) []byte {
	return []byte("doc/" + collection + "/\x00")
}

func docKey(collection, id string) []byte {
	return append(collectionPrefix(collection), id...)
}

func (s *BadgerStore) List(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	c, err := checkCollection(collection)
	if err != nil {
		return nil, err
	}
	var snaps []Snapshot
	prefix := collectionPrefix(c)
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(bytes.TrimPrefix(item.KeyCopy(nil), prefix))
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			snap, err := envelopeSnapshot(c, id, raw)
			if err != nil {
				return err
			}
			snaps = append(snaps, *snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applyQuery(snaps, q), nil
}

func (s *BadgerStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	c, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	var snap *Snapshot
	err = s.db.View(func(txn *badger.Txn) error {
		raw, err := readValue(txn, docKey(c, id))
		if err != nil || raw == nil {
			return err
		}
		snap, err = envelopeSnapshot(c, id, raw)
		return err
	})
	return snap, err
}

func (s *BadgerStore) Create(ctx context.Context, collection string, data Record) (string, error) {
	c, err := checkCollection(collection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.BatchWrite(ctx, []Write{{Path: Join(c, id), Data: data}}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Set(ctx context.Context, path string, data Record) error {
	return s.BatchWrite(ctx, []Write{{Path: path, Data: data}})
}

func (s *BadgerStore) Update(ctx context.Context, path string, data Record) error {
	c, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		raw, err := readValue(txn, docKey(c, id))
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrNotFound
		}
		return s.apply(txn, Write{Path: path, Data: data, Merge: true}, s.now())
	})
}

func (s *BadgerStore) Delete(ctx context.Context, path string) error {
	return s.BatchWrite(ctx, []Write{{Path: path, Delete: true}})
}

func (s *BadgerStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	now := s.now()
	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.apply(txn, w, now)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return err
			}
			txn = s.db.NewTransaction(true)
			err = s.apply(txn, w, now)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

func (s *BadgerStore) apply(txn *badger.Txn, w Write, now time.Time) error {
	c, id, err := SplitPath(w.Path)
	if err != nil {
		return err
	}
	key := docKey(c, id)
	if w.Delete {
		return txn.Delete(key)
	}
	stamp := now.UTC().Format(TimeLayout)
	env := badgerEnvelope{Data: resolve(w.Data, now), CreateTime: stamp, UpdateTime: stamp}

	prev, err := readValue(txn, key)
	if err != nil {
		return err
	}
	if prev != nil {
		var old badgerEnvelope
		if err := json.Unmarshal(prev, &old); err != nil {
			return err
		}
		env.CreateTime = old.CreateTime
		if w.Merge {
			env.Data = merge(old.Data, env.Data)
		}
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func readValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func envelopeSnapshot(collection, id string, raw []byte) (*Snapshot, error) {
	var env badgerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	if env.Data == nil {
		env.Data = Record{}
	}
	snap := &Snapshot{ID: id, Path: Join(collection, id), Data: env.Data}
	snap.CreateTime, _ = time.Parse(time.RFC3339Nano, env.CreateTime)
	snap.UpdateTime, _ = time.Parse(time.RFC3339Nano, env.UpdateTime)
	return snap, nil
}
