// Package store persists the knowledge graph and the processed-text
// registry in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abekenov/termgraph/graph"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("store: store is closed")

// TextRecord is one row of the processed-text registry.
type TextRecord struct {
	TextID       string  `json:"text_id"`
	IsValid      bool    `json:"is_valid"`
	Reason       string  `json:"reason"`
	Density      float64 `json:"density"`
	PatternCount int     `json:"pattern_count"`
	ChainCount   int     `json:"chain_count"`
	NodesAdded   int     `json:"nodes_added"`
	EdgesAdded   int     `json:"edges_added"`
	CreatedAt    string  `json:"created_at"`
}

// Store wraps the SQLite database for all termgraph persistence.
type Store struct {
	db     *sql.DB
	closed bool
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.closed = true
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveGraph replaces the persisted graph with the given snapshot in one
// transaction.
func (s *Store) SaveGraph(ctx context.Context, g *graph.Graph) error {
	if s.closed {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	for i, n := range g.Nodes() {
		terms, err := json.Marshal(n.Terms)
		if err != nil {
			return fmt.Errorf("marshaling node terms: %w", err)
		}
		meta, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling node metadata: %w", err)
		}
		var tier any
		if n.Tier != nil {
			tier = *n.Tier
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (id, name, type, description, terms, tier, confidence, metadata, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Name, string(n.Type), n.Description, string(terms), tier, n.Confidence, string(meta), i,
		); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	for i, e := range g.Edges() {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling edge metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (from_id, to_id, type, explanation, confidence, metadata, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.FromID, e.ToID, string(e.Type), e.Explanation, e.Confidence, string(meta), i,
		); err != nil {
			return fmt.Errorf("inserting edge %s->%s: %w", e.FromID, e.ToID, err)
		}
	}

	return tx.Commit()
}

// LoadGraph rebuilds a graph from the database, preserving insertion
// order.
func (s *Store) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	g := graph.New()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, description, terms, tier, confidence, metadata
		 FROM nodes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n graph.Node
		var typ, terms, meta string
		var desc sql.NullString
		var tier sql.NullInt64
		if err := rows.Scan(&n.ID, &n.Name, &typ, &desc, &terms, &tier, &n.Confidence, &meta); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Type = graph.NodeType(typ)
		n.Description = desc.String
		if tier.Valid {
			t := int(tier.Int64)
			n.Tier = &t
		}
		if err := json.Unmarshal([]byte(terms), &n.Terms); err != nil {
			return nil, fmt.Errorf("unmarshaling node terms: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling node metadata: %w", err)
		}
		g.AddNode(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, type, explanation, confidence, metadata
		 FROM edges ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e graph.Edge
		var typ, meta string
		var expl sql.NullString
		if err := edgeRows.Scan(&e.FromID, &e.ToID, &typ, &expl, &e.Confidence, &meta); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Type = graph.EdgeType(typ)
		e.Explanation = expl.String
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling edge metadata: %w", err)
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("restoring edge: %w", err)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	return g, nil
}

// RecordText upserts one processed-text registry row.
func (s *Store) RecordText(ctx context.Context, r TextRecord) error {
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO texts (text_id, is_valid, reason, density, pattern_count, chain_count, nodes_added, edges_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(text_id) DO UPDATE SET
		   is_valid = excluded.is_valid,
		   reason = excluded.reason,
		   density = excluded.density,
		   pattern_count = excluded.pattern_count,
		   chain_count = excluded.chain_count,
		   nodes_added = excluded.nodes_added,
		   edges_added = excluded.edges_added`,
		r.TextID, r.IsValid, r.Reason, r.Density, r.PatternCount, r.ChainCount, r.NodesAdded, r.EdgesAdded,
	)
	if err != nil {
		return fmt.Errorf("recording text %s: %w", r.TextID, err)
	}
	return nil
}

// ListTexts returns all registry rows, oldest first.
func (s *Store) ListTexts(ctx context.Context) ([]TextRecord, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT text_id, is_valid, reason, density, pattern_count, chain_count, nodes_added, edges_added, created_at
		 FROM texts ORDER BY created_at, text_id`)
	if err != nil {
		return nil, fmt.Errorf("querying texts: %w", err)
	}
	defer rows.Close()

	var out []TextRecord
	for rows.Next() {
		var r TextRecord
		var reason sql.NullString
		if err := rows.Scan(&r.TextID, &r.IsValid, &reason, &r.Density, &r.PatternCount, &r.ChainCount, &r.NodesAdded, &r.EdgesAdded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning text record: %w", err)
		}
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}
