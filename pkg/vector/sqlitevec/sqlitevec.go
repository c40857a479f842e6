// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/vector"
)

// messagesTable is a single vec0 table. user_id is a partition key so KNN
// queries scan one user's shard; the "+" columns are stored alongside the
// vector without being indexed.
const messagesTable = `CREATE VIRTUAL TABLE IF NOT EXISTS message_embeddings USING vec0(
	message_id TEXT PRIMARY KEY,
	user_id TEXT PARTITION KEY,
	embedding float[%d],
	+conversation_id TEXT,
	+role TEXT,
	+content TEXT
)`

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding dimensionality. It is fixed when the
	// table is first created.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, log *slog.Logger) (*SQLiteVecDriver, error) {
	log = logger.OrNop(log)

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	// registers sqlite-vec on every new go-sqlite3 connection
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf(messagesTable, c.Dimensions)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating message_embeddings table: %w", err)
	}

	log.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:         db,
		dimensions: int(c.Dimensions),
		logger:     log,
	}, nil
}

// Add stores documents, replacing any with the same message id. vec0 has no
// upsert, so replacement is a delete followed by an insert in one transaction.
func (d *SQLiteVecDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if len(doc.Embedding) != d.dimensions {
			return fmt.Errorf("document %s has %d dimensions, index expects %d", doc.ID, len(doc.Embedding), d.dimensions)
		}

		blob, err := sqlite_vec.SerializeFloat32(doc.Embedding)
		if err != nil {
			return fmt.Errorf("serializing embedding for %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM message_embeddings WHERE message_id = ?`, doc.ID,
		); err != nil {
			return fmt.Errorf("replacing %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_embeddings(message_id, user_id, embedding, conversation_id, role, content)
			VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.UserID, blob, doc.ConversationID, doc.Role, doc.Content,
		); err != nil {
			return fmt.Errorf("inserting %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("indexed messages", "count", len(docs))
	return nil
}

// Query runs a KNN search, restricted to one partition when opts.UserID is set.
func (d *SQLiteVecDriver) Query(ctx context.Context, embedding []float32, opts vector.QueryOptions) ([]vector.QueryResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serializing query embedding: %w", err)
	}

	var q strings.Builder
	q.WriteString(`
		SELECT message_id, user_id, conversation_id, role, content, distance
		FROM message_embeddings
		WHERE embedding MATCH ? AND k = ?`)
	args := []any{blob, topK}
	if opts.UserID != "" {
		q.WriteString(` AND user_id = ?`)
		args = append(args, opts.UserID)
	}
	q.WriteString(` ORDER BY distance`)

	rows, err := d.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r        vector.QueryResult
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ConversationID, &r.Role, &r.Content, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Score = float32(1.0 / (1.0 + distance))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "user_id", opts.UserID, "results", len(results))
	return results, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}
