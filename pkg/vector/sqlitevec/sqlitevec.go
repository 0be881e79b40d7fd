// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/tabletalk/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec. Documents
// live in a regular table keyed by an integer rowid shared with the vec0
// virtual table that holds the embeddings.
type Driver struct {
	db       *sql.DB
	readOnly bool
	logger   *slog.Logger
}

// Config holds configuration for the sqlite-vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file, or ":memory:".
	DBPath string

	// Dimensions is the embedding dimension. Required unless ReadOnly is set,
	// in which case the existing schema is used as-is.
	Dimensions uint

	// ReadOnly opens an existing index without creating or altering tables.
	// Opening fails when the file or its tables are missing.
	ReadOnly bool
}

// NewDriver opens (or creates) a sqlite-vec index.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// register the sqlite-vec extension on every new connection
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	dsn := c.DBPath
	if c.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", c.DBPath)
	} else if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if c.DBPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	d := &Driver{db: db, readOnly: c.ReadOnly, logger: logger}

	if c.ReadOnly {
		if err := d.verifySchema(); err != nil {
			db.Close()
			return nil, err
		}
	} else if err := d.createSchema(c.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"read_only", c.ReadOnly,
		"vec_version", vecVersion,
	)

	return d, nil
}

func (d *Driver) createSchema(dimensions uint) error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := d.db.Exec(createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	return nil
}

func (d *Driver) verifySchema() error {
	for _, table := range []string{"documents", "vec_embeddings"} {
		var name string
		err := d.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE name = ?`, table,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: table %s missing", vector.ErrNotFound, table)
		}
		if err != nil {
			return fmt.Errorf("checking table %s: %w", table, err)
		}
	}
	return nil
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(s string) map[string]string {
	m := map[string]string{}
	if s == "" {
		return m
	}
	// a damaged metadata column degrades to empty provenance, not a failed query
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

// Add stores documents, replacing any that share an ID.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if d.readOnly {
		return errors.New("sqlite-vec driver is read-only")
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, doc := range docs {
		meta, err := encodeMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		blob := serializeFloat32(doc.Embedding)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM documents WHERE doc_id = ?`, doc.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE documents SET text = ?, metadata = ? WHERE rowid = ?`,
				doc.Text, meta, rowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}

		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO documents(doc_id, text, metadata) VALUES (?, ?, ?)`,
				doc.ID, doc.Text, meta,
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}
			if rowID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}

		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec", "count", len(docs))
	return nil
}

// Query runs a vec0 KNN match and returns hits by ascending distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			doc.doc_id,
			doc.text,
			doc.metadata,
			knn.distance
		FROM (
			SELECT rowid, distance
			FROM vec_embeddings
			WHERE embedding MATCH ?
				AND k = ?
		) knn
		INNER JOIN documents doc ON doc.rowid = knn.rowid
		ORDER BY knn.distance
	`, serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r    vector.QueryResult
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Text, &meta, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Metadata = decodeMetadata(meta)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))
	return results, nil
}

// Get retrieves documents, with embeddings, by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT doc.doc_id, doc.text, doc.metadata, emb.embedding
		FROM documents doc
		LEFT JOIN vec_embeddings emb ON emb.rowid = doc.rowid
		WHERE doc.doc_id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			doc  vector.Document
			meta string
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Metadata = decodeMetadata(meta)
		if len(blob) > 0 {
			if doc.Embedding, err = deserializeFloat32(blob); err != nil {
				return nil, fmt.Errorf("decoding embedding for doc %s: %w", doc.ID, err)
			}
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
