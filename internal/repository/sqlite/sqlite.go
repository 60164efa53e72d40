package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dsla/internal/domain"
	"dsla/internal/repository"
)

const currentVersion = 1

// Repository implements repository.Store using SQLite
type Repository struct {
	db    *sql.DB
	table string // quoted table identifier
	name  string // raw collection name, used for index names
}

var _ repository.Store = (*Repository)(nil)

// New opens (or creates) a SQLite database and migrates the collection table.
// Use ":memory:" for an in-memory database.
func New(dbPath, collection string) (*Repository, error) {
	table, err := quoteIdentifier(collection)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writers; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repository{db: db, table: table, name: collection}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	var version int
	if err := r.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			id_field TEXT,
			identifier TEXT,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`, r.table),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS "%s_identifier_idx"
			ON %s (id_field, identifier) WHERE identifier IS NOT NULL`, r.name, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_body_idx" ON %s (body)`, r.name, r.table),
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration statement: %w", err)
		}
	}

	if version < currentVersion {
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion)); err != nil {
			return fmt.Errorf("setting user_version: %w", err)
		}
	}

	return tx.Commit()
}

// ListIdentifiers returns the identifier column of every document written
// under field. The column holds the same rendering the unique index compares.
func (r *Repository) ListIdentifiers(ctx context.Context, field string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT identifier FROM %s WHERE id_field = ? AND identifier IS NOT NULL ORDER BY seq`,
		r.table), field)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		values = append(values, nullToString(v))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identifiers: %w", err)
	}

	return values, nil
}

// InsertMany stores records in a single transaction, skipping rows whose
// identifying value is already present
func (r *Repository) InsertMany(ctx context.Context, field string, records []domain.Record) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.insertSQL())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted, conflicts := 0, 0
	for _, rec := range records {
		args, err := insertArgs(uuid.NewString(), field, rec, now)
		if err != nil {
			return 0, 0, err
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			conflicts++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit insert: %w", err)
	}

	return inserted, conflicts, nil
}

// InsertOne stores a record verbatim and returns its id
func (r *Repository) InsertOne(ctx context.Context, field string, record domain.Record) (string, error) {
	id := uuid.NewString()
	args, err := insertArgs(id, field, record, time.Now().UTC())
	if err != nil {
		return "", err
	}

	res, err := r.db.ExecContext(ctx, r.insertSQL(), args...)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		value, _ := record.Value(field)
		return "", domain.ConflictError(field, value)
	}

	return id, nil
}

// HasDocument reports whether a document with exactly these fields is stored
func (r *Repository) HasDocument(ctx context.Context, record domain.Record) (bool, error) {
	body, err := encodeBody(record)
	if err != nil {
		return false, err
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE body = ?)`, r.table), body).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query document: %w", err)
	}
	return exists, nil
}

// ListDocuments returns every stored document in insertion order
func (r *Repository) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, body, created_at FROM %s ORDER BY seq`, r.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var (
			id, body, createdAt string
		)
		if err := rows.Scan(&id, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		fields, err := decodeBody(body)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
		}

		docs = append(docs, domain.Document{
			ID:        id,
			Fields:    fields,
			CreatedAt: parseTime(createdAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Ping verifies the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (id, id_field, identifier, body, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`, r.table)
}
