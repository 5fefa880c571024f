package graph

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteGraph implements Graph by querying a snapshot database written by
// SQLiteWriter. No ingestion step: the snapshot's B+ tree IS the index.
//
// Nodes are materialized on first access and kept in a FIFO-bounded cache,
// so repeated descents through the same region of a large hierarchy do not
// hit the database again.
type SQLiteGraph struct {
	db     *sql.DB
	dbPath string

	rootsOnce sync.Once
	roots     []string
	rootsErr  error

	cache *nodeCache
}

// OpenSQLiteGraph opens a read-only connection to a snapshot database.
func OpenSQLiteGraph(dbPath string) (*SQLiteGraph, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(4)

	// Fail fast on files that are not snapshots.
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM nodes`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open snapshot %s: %w", dbPath, err)
	}

	return &SQLiteGraph{
		db:     db,
		dbPath: dbPath,
		cache:  newNodeCache(4096),
	}, nil
}

// GetNode implements Graph.
func (g *SQLiteGraph) GetNode(id string) (*Node, error) {
	if n, ok := g.cache.get(id); ok {
		return n, nil
	}

	var (
		name        sql.NullString
		hasChildren int
	)
	err := g.db.QueryRow(`SELECT name, has_children FROM nodes WHERE id = ?`, id).Scan(&name, &hasChildren)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query node %s: %w", id, err)
	}

	n := &Node{ID: id, Name: name.String}
	if hasChildren != 0 {
		children, err := g.queryChildren(id)
		if err != nil {
			return nil, err
		}
		n.Children = children
	}

	g.cache.put(id, n)
	return n, nil
}

func (g *SQLiteGraph) queryChildren(id string) ([]string, error) {
	rows, err := g.db.Query(`SELECT child FROM edges WHERE parent = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("query children of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	children := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan child of %s: %w", id, err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// ListChildren implements Graph.
func (g *SQLiteGraph) ListChildren(id string) ([]string, error) {
	if id == "" {
		g.rootsOnce.Do(func() {
			g.roots, g.rootsErr = g.queryRoots()
		})
		return g.roots, g.rootsErr
	}
	n, err := g.GetNode(id)
	if err != nil {
		return nil, err
	}
	return n.Children, nil
}

func (g *SQLiteGraph) queryRoots() ([]string, error) {
	rows, err := g.db.Query(`SELECT id FROM roots ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	roots := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, id)
	}
	return roots, rows.Err()
}

// Path returns the database file backing this graph.
func (g *SQLiteGraph) Path() string {
	return g.dbPath
}

// Close closes the database connection.
func (g *SQLiteGraph) Close() error {
	return g.db.Close()
}

// nodeCache is a simple FIFO-evicting bounded cache for materialized nodes.
type nodeCache struct {
	mu      sync.Mutex
	entries map[string]*Node
	keys    []string
	maxSize int
}

func newNodeCache(maxSize int) *nodeCache {
	return &nodeCache{
		entries: make(map[string]*Node, maxSize),
		keys:    make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *nodeCache) get(key string) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *nodeCache) put(key string, value *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = value
		return
	}
	if len(c.entries) >= c.maxSize {
		evict := c.keys[0]
		c.keys = c.keys[1:]
		delete(c.entries, evict)
	}
	c.entries[key] = value
	c.keys = append(c.keys, key)
}
