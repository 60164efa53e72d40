// Package badgerstore implements repository.Store on an embedded Badger key-value
// database.
//
// Key layout under a collection prefix:
//
//	<collection>/doc/<seq>        -> document JSON
//	<collection>/ident/<field>\x00<value> -> document key
//	<collection>/body/<sha256>    -> document key (full-body equality lookup)
package badgerstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"dsla/internal/domain"
	"dsla/internal/repository"
)

// Repository implements repository.Store using Badger
type Repository struct {
	db     *badger.DB
	prefix string
	seq    *badger.Sequence
}

var _ repository.Store = (*Repository)(nil)

type storedDocument struct {
	ID        string        `json:"id"`
	Fields    domain.Record `json:"fields"`
	CreatedAt time.Time     `json:"created_at"`
}

// New opens a Badger database at path. An empty path or ":memory:" opens an
// in-memory database.
func New(path, collection string) (*Repository, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	var opts badger.Options
	if path == "" || path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	prefix := collection + "/"
	seq, err := db.GetSequence([]byte(prefix+"seq"), 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sequence: %w", err)
	}

	return &Repository{db: db, prefix: prefix, seq: seq}, nil
}

// ListIdentifiers returns every value indexed under field. These are the
// keys put checks for conflicts, so a stored value always matches itself.
func (r *Repository) ListIdentifiers(ctx context.Context, field string) ([]string, error) {
	var values []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := r.identPrefix(field)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			values = append(values, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate identifiers: %w", err)
	}
	return values, nil
}

// InsertMany stores records in one transaction, skipping rows whose
// identifying value is already present
func (r *Repository) InsertMany(ctx context.Context, field string, records []domain.Record) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	inserted, conflicts := 0, 0
	err := r.db.Update(func(txn *badger.Txn) error {
		inserted, conflicts = 0, 0
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := r.put(txn, field, rec); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					conflicts++
					continue
				}
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert documents: %w", err)
	}
	return inserted, conflicts, nil
}

// InsertOne stores a record verbatim and returns its id
func (r *Repository) InsertOne(ctx context.Context, field string, record domain.Record) (string, error) {
	var id string
	err := r.db.Update(func(txn *badger.Txn) error {
		var err error
		id, err = r.put(txn, field, record)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

// HasDocument reports whether a document with exactly these fields is stored
func (r *Repository) HasDocument(ctx context.Context, record domain.Record) (bool, error) {
	key, err := r.bodyKey(record)
	if err != nil {
		return false, err
	}

	found := false
	err = r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to query document: %w", err)
	}
	return found, nil
}

// ListDocuments returns every stored document in insertion order
func (r *Repository) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs := make([]domain.Document, 0)
	err := r.eachDocument(ctx, func(doc storedDocument) {
		docs = append(docs, domain.Document{
			ID:        doc.ID,
			Fields:    doc.Fields,
			CreatedAt: doc.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Ping reports an error once the database has been closed
func (r *Repository) Ping(ctx context.Context) error {
	if r.db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return nil
}

// Close releases the sequence lease and closes the database
func (r *Repository) Close() error {
	if r.seq != nil {
		_ = r.seq.Release()
	}
	return r.db.Close()
}

// put writes one document and its index keys inside txn
func (r *Repository) put(txn *badger.Txn, field string, record domain.Record) (string, error) {
	if record == nil {
		record = domain.Record{}
	}

	var identKey []byte
	if value, ok := record.Value(field); ok {
		identKey = append(r.identPrefix(field), value...)
		_, err := txn.Get(identKey)
		if err == nil {
			return "", domain.ConflictError(field, value)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return "", err
		}
	}

	n, err := r.seq.Next()
	if err != nil {
		return "", fmt.Errorf("failed to allocate sequence: %w", err)
	}

	doc := storedDocument{
		ID:        uuid.NewString(),
		Fields:    record,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	docKey := r.docKey(n)
	if err := txn.Set(docKey, data); err != nil {
		return "", err
	}
	if identKey != nil {
		if err := txn.Set(identKey, docKey); err != nil {
			return "", err
		}
	}
	bodyKey, err := r.bodyKey(record)
	if err != nil {
		return "", err
	}
	if err := txn.Set(bodyKey, docKey); err != nil {
		return "", err
	}

	return doc.ID, nil
}

// eachDocument iterates documents in key (insertion) order
func (r *Repository) eachDocument(ctx context.Context, fn func(storedDocument)) error {
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(r.prefix + "doc/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var doc storedDocument
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			fn(doc)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to iterate documents: %w", err)
	}
	return nil
}

// docKey encodes the sequence big-endian so iteration order is insertion order
func (r *Repository) docKey(n uint64) []byte {
	key := make([]byte, 0, len(r.prefix)+4+8)
	key = append(key, r.prefix+"doc/"...)
	return binary.BigEndian.AppendUint64(key, n)
}

func (r *Repository) identPrefix(field string) []byte {
	return []byte(r.prefix + "ident/" + field + "\x00")
}

func (r *Repository) bodyKey(record domain.Record) ([]byte, error) {
	if record == nil {
		record = domain.Record{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	sum := sha256.Sum256(data)
	return []byte(r.prefix + "body/" + hex.EncodeToString(sum[:])), nil
}
