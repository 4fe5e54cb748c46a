package db

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type ConnectionStringer interface {
	ConnectionString() string
}

var connections map[string]*sqlx.DB = make(map[string]*sqlx.DB)
var lock sync.RWMutex

func Open(connStringer ConnectionStringer) (*sqlx.DB, error) {
	lock.Lock()
	defer lock.Unlock()
	existingDb, ok := connections[connStringer.ConnectionString()]
	if ok {
		return existingDb, nil
	} else {
		db, err := sqlx.Open("sqlite3", dsn(connStringer.ConnectionString()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
		connections[connStringer.ConnectionString()] = db
		return db, nil
	}
}

// Close closes and forgets the connection for connStringer, if one is open.
func Close(connStringer ConnectionStringer) error {
	lock.Lock()
	defer lock.Unlock()
	existingDb, ok := connections[connStringer.ConnectionString()]
	if !ok {
		return nil
	}
	delete(connections, connStringer.ConnectionString())
	return existingDb.Close()
}

func dsn(path string) string {
	return fmt.Sprintf("file:%v?_foreign_keys=on&_busy_timeout=5000", path)
}
