// Package catalog records extracted books in sqlite database.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"mobiparse/objects"
)

// should be usable in the zap log.Named()
const driverName = "catalog"

// Entry is a single extraction.
type Entry struct {
	ID          int64            `json:"id" yaml:"id"`
	Hash        string           `json:"hash" yaml:"hash"`
	File        string           `json:"file" yaml:"file"`
	Format      string           `json:"format" yaml:"format"`
	Title       string           `json:"title" yaml:"title"`
	Metadata    objects.Metadata `json:"metadata" yaml:"metadata"`
	Destination string           `json:"destination" yaml:"destination"`
	Created     time.Time        `json:"created" yaml:"created"`
}

type Connection struct {
	log  *zap.Logger
	conn *sqlite.Conn
}

// Connect opens existing catalog, see Create.
func Connect(path string, log *zap.Logger) (*Connection, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite)
	if err != nil {
		return nil, err
	}
	err = sqlitex.ExecuteTransient(conn, `PRAGMA foreign_keys = ON;`, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Connection{log: log.Named(driverName), conn: conn}, nil
}

func (c *Connection) Disconnect() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.log.Error("Problems closing catalog database", zap.Error(err))
	}
	c.conn = nil
}

func lastBook(conn *sqlite.Conn) (int64, error) {
	var id int64
	if err := sqlitex.Execute(conn, `SELECT book_id FROM books ORDER BY 1 DESC LIMIT 1;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id = stmt.ColumnInt64(0)
			return nil
		},
	}); err != nil {
		return 0, fmt.Errorf("unable to read last book id: %w", err)
	}
	return id, nil
}

// Save records extraction along with every resource saved for it and
// returns new entry id.
func (c *Connection) Save(e *Entry, rs objects.ResourceSet) (id int64, err error) {
	var endFn func(*error)

	endFn, err = sqlitex.ImmediateTransaction(c.conn)
	if err != nil {
		return 0, fmt.Errorf("unable to start transaction: %w", err)
	}
	defer endFn(&err)

	md, err := json.Marshal(e.Metadata)
	if err != nil {
		return 0, fmt.Errorf("unable to marshal metadata for '%s': %w", e.File, err)
	}
	if err = sqlitex.Execute(c.conn, `INSERT INTO books (hash, file, format, title, metadata, destination, created) VALUES (?, ?, ?, ?, json(?), ?, ?);`, &sqlitex.ExecOptions{
		Args: []any{e.Hash, e.File, e.Format, e.Title, string(md), e.Destination, time.Now().UTC().Unix()},
	}); err != nil {
		return 0, fmt.Errorf("unable to save book '%s' in catalog: %w", e.File, err)
	}
	if id, err = lastBook(c.conn); err != nil {
		return 0, err
	}

	for _, k := range rs.Keys() {
		data, err := json.Marshal(rs[k])
		if err != nil {
			return 0, fmt.Errorf("unable to marshal resource info for '%s': %w", k, err)
		}
		if err := sqlitex.Execute(c.conn, `INSERT INTO resources (book_id, key, data) VALUES (?, ?, json(?));`, &sqlitex.ExecOptions{
			Args: []any{id, k, string(data)},
		}); err != nil {
			return 0, fmt.Errorf("unable to save resource '%s' in catalog: %w", k, err)
		}
	}
	c.log.Debug("Book catalogued", zap.Int64("id", id), zap.String("file", e.File), zap.Int("resources", len(rs)))
	return id, nil
}

func scanEntry(stmt *sqlite.Stmt) (*Entry, error) {
	e := &Entry{
		ID:          stmt.ColumnInt64(0),
		Hash:        stmt.ColumnText(1),
		File:        stmt.ColumnText(2),
		Format:      stmt.ColumnText(3),
		Title:       stmt.ColumnText(4),
		Destination: stmt.ColumnText(6),
		Created:     time.Unix(stmt.ColumnInt64(7), 0).UTC(),
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unable to unmarshal metadata: %w", err)
	}
	return e, nil
}

const selectBooks = `SELECT book_id, hash, file, format, title, metadata, destination, created FROM books`

// Entries returns all extractions, oldest first.
func (c *Connection) Entries() ([]*Entry, error) {
	return entries(c.conn, selectBooks+` ORDER BY book_id;`)
}

// Find returns extractions of the book with content hash.
func (c *Connection) Find(hash string) ([]*Entry, error) {
	return entries(c.conn, selectBooks+` WHERE hash=? ORDER BY book_id;`, hash)
}

func entries(conn *sqlite.Conn, query string, args ...any) ([]*Entry, error) {
	var out []*Entry
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			e, err := scanEntry(stmt)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to retrieve books from catalog: %w", err)
	}
	return out, nil
}

// Resources returns resources saved for extraction id.
func (c *Connection) Resources(id int64) (objects.ResourceSet, error) {
	rs := objects.NewResourceSet()
	if err := sqlitex.Execute(c.conn, `SELECT key, data FROM resources WHERE book_id=?;`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var ri objects.ResourceInfo
			if err := json.Unmarshal([]byte(stmt.ColumnText(1)), &ri); err != nil {
				return fmt.Errorf("unable to unmarshal resource info: %w", err)
			}
			rs.Add(stmt.ColumnText(0), &ri)
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to retrieve book '%d' resources from catalog: %w", id, err)
	}
	return rs, nil
}
