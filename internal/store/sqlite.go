package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT,
	data       TEXT NOT NULL,
	UNIQUE (collection, id)
);
`

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// OpenSQLite opens (creating if needed) the database at path. The parent
// directory must exist.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	logger.Info("record store opened", "path", path)
	return &SQLite{pool: pool, logger: logger, path: path}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// Create inserts value and returns its new id.
func (s *SQLite) Create(ctx context.Context, collection string, value any) (id string, err error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding %s record: %w", collection, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)

	err = sqlitex.Execute(conn, `INSERT INTO records (collection, data) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{collection, string(data)}})
	if err != nil {
		return "", fmt.Errorf("inserting %s record: %w", collection, err)
	}

	seq := conn.LastInsertRowID()
	id = strconv.FormatInt(seq, 10)
	err = sqlitex.Execute(conn, `UPDATE records SET id = ? WHERE seq = ?`,
		&sqlitex.ExecOptions{Args: []any{id, seq}})
	if err != nil {
		return "", fmt.Errorf("assigning %s id: %w", collection, err)
	}
	return id, nil
}

// Read decodes the record into dst.
func (s *SQLite) Read(ctx context.Context, collection, id string, dst any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		data  string
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT data FROM records WHERE collection = ? AND id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{collection, id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				data = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", collection, id, err)
	}
	if !found {
		return ErrNotFound
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", collection, id, err)
	}
	return nil
}

// ReadAll returns every non-singleton record of collection in insertion order.
func (s *SQLite) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		`SELECT id, data FROM records WHERE collection = ? AND id IS NOT NULL AND id <> '' ORDER BY seq`,
		&sqlitex.ExecOptions{
			Args: []any{collection},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				records = append(records, Record{
					ID:   stmt.ColumnText(0),
					Data: json.RawMessage(stmt.ColumnText(1)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	return records, nil
}

// Update replaces the record data. SingletonID upserts.
func (s *SQLite) Update(ctx context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", collection, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	if id == SingletonID {
		err = sqlitex.Execute(conn, `
			INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
			&sqlitex.ExecOptions{Args: []any{collection, id, string(data)}})
		if err != nil {
			return fmt.Errorf("writing %s: %w", collection, err)
		}
		return nil
	}

	err = sqlitex.Execute(conn, `UPDATE records SET data = ? WHERE collection = ? AND id = ?`,
		&sqlitex.ExecOptions{Args: []any{string(data), collection, id}})
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record if present.
func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM records WHERE collection = ? AND id = ?`,
		&sqlitex.ExecOptions{Args: []any{collection, id}})
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close closes every pooled connection.
func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("record store close failed", "path", s.path, "error", err)
		return fmt.Errorf("store: closing %s: %w", s.path, err)
	}
	s.logger.Info("record store closed", "path", s.path)
	return nil
}
