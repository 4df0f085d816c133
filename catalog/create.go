package catalog

import (
	"context"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

var schema = sqlitemigration.Schema{
	Migrations: []string{
		`CREATE TABLE "books" (
			"book_id"     INTEGER NOT NULL UNIQUE,
			"hash"        TEXT NOT NULL,
			"file"        TEXT NOT NULL,
			"format"      TEXT NOT NULL,
			"title"       TEXT NOT NULL,
			"metadata"    JSON,
			"destination" TEXT NOT NULL,
			"created"     INTEGER NOT NULL, -- Unix timestamp (epoch seconds)
			PRIMARY KEY("book_id" AUTOINCREMENT)
		);`,
		`CREATE TABLE "resources" (
			"book_id" INTEGER NOT NULL,
			"key"     TEXT NOT NULL,
			"data"    JSON,
			PRIMARY KEY("book_id","key"),
			FOREIGN KEY(book_id) REFERENCES books(book_id)
		);`,
		`CREATE INDEX "books_hash" ON "books" ("hash");`,
	},
}

// Create makes sure catalog database exists and has current schema.
func Create(path string, log *zap.Logger) error {
	log = log.Named("catalog-migration")

	// async - will return immediately
	pool := sqlitemigration.NewPool(path, schema, sqlitemigration.Options{
		Flags: sqlite.OpenReadWrite | sqlite.OpenCreate,
		PrepareConn: func(conn *sqlite.Conn) error {
			// Enable foreign keys. See https://sqlite.org/foreignkeys.html
			return sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil)
		},
		OnError: func(e error) {
			log.Error("Problems creating catalog database", zap.String("path", path), zap.Error(e))
		},
	})
	defer pool.Close()

	// Get a connection. This blocks until the migration completes.
	conn, err := pool.Get(context.TODO())
	if err != nil {
		return err
	}
	pool.Put(conn)
	return nil
}
