package backend

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a point lookup matches no row the
// caller is allowed to see.
var ErrNotFound = errors.New("not found")

type PgStore struct {
	conn *sql.DB
}

func NewPgStore(dsn string) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgStore{conn: db}, nil
}

func (db *PgStore) Ping() error {
	return db.conn.Ping()
}

func (db *PgStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
