package badger

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/vector"
)

const keyPrefix = "emb/"

// Config controls where the index lives.
type Config struct {
	// Path is the index directory. Required unless InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// Store is a persistent VectorStore on BadgerDB. Search is an exact scan,
// which is fine for the few hundred chunks of a single report.
type Store struct {
	db *badgerdb.DB
}

type record struct {
	Text     string         `json:"text"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Open creates or reopens an index.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: index path is required", errors.ErrInvalidInput)
	}

	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create index directory %s: %w", cfg.Path, err)
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger index: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddEmbedding adds or replaces an embedding.
func (s *Store) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}
	data, err := json.Marshal(record{Text: embedding.Text, Vector: embedding.Vector, Metadata: embedding.Metadata})
	if err != nil {
		return fmt.Errorf("encode embedding %s: %w", embedding.ID, err)
	}
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set(key(embedding.ID), data)
	})
}

// Search scans all embeddings and returns the topK most similar ones.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Embedding, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	type scored struct {
		emb   *vector.Embedding
		score float32
	}
	var hits []scored
	err := s.scan(ctx, func(emb *vector.Embedding) error {
		if len(emb.Vector) != len(queryVector) {
			return nil
		}
		hits = append(hits, scored{emb: emb, score: vector.CosineSimilarity(queryVector, emb.Vector)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].emb.ID < hits[j].emb.ID
	})
	limit := min(topK, len(hits))
	out := make([]*vector.Embedding, limit)
	for i := 0; i < limit; i++ {
		out[i] = hits[i].emb
	}
	return out, nil
}

// DeleteEmbedding removes an embedding by ID.
func (s *Store) DeleteEmbedding(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			if stdErrors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("embedding %s: %w", id, errors.ErrNotFound)
			}
			return err
		}
		return txn.Delete(key(id))
	})
}

// GetEmbedding retrieves an embedding by ID.
func (s *Store) GetEmbedding(ctx context.Context, id string) (*vector.Embedding, error) {
	var out *vector.Embedding
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			if stdErrors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("embedding %s: %w", id, errors.ErrNotFound)
			}
			return err
		}
		out, err = decode(id, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear removes all embeddings.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(keyPrefix))
}

// Count returns the number of embeddings.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *Store) scan(ctx context.Context, fn func(*vector.Embedding) error) error {
	return s.view(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			emb, err := decode(string(item.Key()[len(keyPrefix):]), item)
			if err != nil {
				return err
			}
			if err := fn(emb); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) update(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.Update(fn)
}

func (s *Store) view(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.View(fn)
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func decode(id string, item *badgerdb.Item) (*vector.Embedding, error) {
	var rec record
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode embedding %s: %w", id, err)
	}
	return &vector.Embedding{ID: id, Text: rec.Text, Vector: rec.Vector, Metadata: rec.Metadata}, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
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
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
