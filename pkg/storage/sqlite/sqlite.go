// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/merkle"
	"github.com/papercomputeco/tabletalk/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	hash TEXT PRIMARY KEY,
	parent_hash TEXT,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent_hash ON nodes(parent_hash);

CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	head TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put stores a node. If the node already exists (by hash), this is a no-op.
func (d *Driver) Put(ctx context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes (hash, parent_hash, role, content) VALUES (?, ?, ?, ?)`,
		node.Hash, node.ParentHash, string(node.Bucket.Role), node.Bucket.Content,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert node: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a node by its hash.
func (d *Driver) Get(ctx context.Context, hash string) (*merkle.Node, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT hash, parent_hash, role, content FROM nodes WHERE hash = ?`, hash)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}
	return node, nil
}

// Has checks if a node exists by its hash.
func (d *Driver) Has(ctx context.Context, hash string) (bool, error) {
	var exists int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE hash = ? LIMIT 1`, hash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// Ancestry walks parent links with a recursive query (node first, root last).
func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	rows, err := d.db.QueryContext(ctx, `
		WITH RECURSIVE ancestry(hash, parent_hash, role, content, depth) AS (
			SELECT hash, parent_hash, role, content, 0 FROM nodes WHERE hash = ?
			UNION ALL
			SELECT n.hash, n.parent_hash, n.role, n.content, a.depth + 1
			FROM nodes n
			INNER JOIN ancestry a ON n.hash = a.parent_hash
		)
		SELECT hash, parent_hash, role, content FROM ancestry ORDER BY depth
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestry: %w", err)
	}
	defer rows.Close()

	var path []*merkle.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ancestor: %w", err)
		}
		path = append(path, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ancestry: %w", err)
	}

	if len(path) == 0 {
		return nil, storage.NotFoundError{Hash: hash}
	}
	if last := path[len(path)-1]; last.ParentHash != nil {
		return nil, fmt.Errorf("broken chain: %w", storage.NotFoundError{Hash: *last.ParentHash})
	}
	return path, nil
}

// PutThread creates or replaces a thread record.
func (d *Driver) PutThread(ctx context.Context, thread storage.Thread) error {
	if thread.ID == "" {
		return errors.New("thread id is required")
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO threads (id, head, subject, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET head = excluded.head, subject = excluded.subject, updated_at = excluded.updated_at
	`, thread.ID, thread.Head, thread.Subject, thread.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	return nil
}

// GetThread returns a thread record.
func (d *Driver) GetThread(ctx context.Context, id string) (storage.Thread, error) {
	var (
		t         storage.Thread
		updatedAt time.Time
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, head, subject, updated_at FROM threads WHERE id = ?`, id,
	).Scan(&t.ID, &t.Head, &t.Subject, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Thread{}, storage.NotFoundError{Thread: id}
	}
	if err != nil {
		return storage.Thread{}, fmt.Errorf("failed to scan thread: %w", err)
	}
	t.UpdatedAt = updatedAt
	return t, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*merkle.Node, error) {
	var (
		node       merkle.Node
		parentHash sql.NullString
		role       string
	)
	if err := s.Scan(&node.Hash, &parentHash, &role, &node.Bucket.Content); err != nil {
		return nil, err
	}
	if parentHash.Valid {
		node.ParentHash = &parentHash.String
	}
	node.Bucket.Role = llm.Role(role)
	return &node, nil
}

var _ storage.Driver = (*Driver)(nil)
