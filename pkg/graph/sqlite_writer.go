package graph

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// snapshotSchema is shared by SQLiteWriter and SQLiteGraph.
// name is NULL for unnamed nodes; has_children separates "no child list"
// from "empty child list", which the edges table alone cannot express.
const snapshotSchema = `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		name TEXT,
		has_children INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS edges (
		parent TEXT NOT NULL,
		ord INTEGER NOT NULL,
		child TEXT NOT NULL,
		PRIMARY KEY (parent, ord)
	) WITHOUT ROWID;
	CREATE TABLE IF NOT EXISTS roots (
		ord INTEGER PRIMARY KEY,
		id TEXT NOT NULL
	);
`

// SQLiteWriter persists a scene snapshot into a SQLite database that
// SQLiteGraph can later serve read-only.
type SQLiteWriter struct {
	db        *sql.DB
	tx        *sql.Tx
	stmtNode  *sql.Stmt
	stmtEdge  *sql.Stmt
	stmtRoot  *sql.Stmt
	batchSize int
	count     int
	roots     int
	mu        sync.Mutex
}

// NewSQLiteWriter creates a new writer and initializes the schema.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		batchSize: 10000,
	}

	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return w, nil
}

func (w *SQLiteWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmtNode, err = w.tx.Prepare(`INSERT OR REPLACE INTO nodes (id, name, has_children) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	w.stmtEdge, err = w.tx.Prepare(`INSERT OR REPLACE INTO edges (parent, ord, child) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	w.stmtRoot, err = w.tx.Prepare(`INSERT INTO roots (ord, id) VALUES (?, ?)`)
	return err
}

func (w *SQLiteWriter) commitTx() error {
	for _, st := range []*sql.Stmt{w.stmtNode, w.stmtEdge, w.stmtRoot} {
		if st != nil {
			_ = st.Close()
		}
	}
	return w.tx.Commit()
}

// AddNode writes a node and its ordered child edges.
func (w *SQLiteWriter) AddNode(n *Node) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addNodeLocked(n)
}

func (w *SQLiteWriter) addNodeLocked(n *Node) error {
	var name *string
	if n.Named() {
		name = &n.Name
	}
	hasChildren := 0
	if n.HasChildList() {
		hasChildren = 1
	}

	if _, err := w.stmtNode.Exec(n.ID, name, hasChildren); err != nil {
		return fmt.Errorf("insert node %s: %w", n.ID, err)
	}
	for i, c := range n.Children {
		if _, err := w.stmtEdge.Exec(n.ID, i, c); err != nil {
			return fmt.Errorf("insert edge %s -> %s: %w", n.ID, c, err)
		}
	}

	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		w.count = 0
	}
	return nil
}

// AddRoot writes a node and registers it as a top-level root.
func (w *SQLiteWriter) AddRoot(n *Node) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.addNodeLocked(n); err != nil {
		return err
	}
	if _, err := w.stmtRoot.Exec(w.roots, n.ID); err != nil {
		return fmt.Errorf("insert root %s: %w", n.ID, err)
	}
	w.roots++
	return nil
}

// WriteGraph copies every node reachable from g's roots.
func (w *SQLiteWriter) WriteGraph(g Graph) error {
	roots, err := g.ListChildren("")
	if err != nil {
		return fmt.Errorf("list roots: %w", err)
	}
	for _, r := range roots {
		var writeErr error
		err := Walk(g, r, func(n *Node, depth int) bool {
			if depth == 0 {
				writeErr = w.AddRoot(n)
			} else {
				writeErr = w.AddNode(n)
			}
			return writeErr == nil
		})
		if writeErr != nil {
			return writeErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close commits pending writes and closes the database.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	return w.db.Close()
}
