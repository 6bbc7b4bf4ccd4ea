package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// DefaultTable tracks the applied schema version
const DefaultTable = "prefs_schema"

// Driver implements database.Driver over an already open *sql.DB. The stock
// sqlite3 driver links mattn/go-sqlite3, which collides with the ncruces
// driver's registration.
type Driver struct {
	db     *sql.DB
	table  string
	locked atomic.Bool
}

// WithInstance wraps db; an empty table selects DefaultTable
func WithInstance(db *sql.DB, table string) (database.Driver, error) {
	if db == nil {
		return nil, errors.New("migrations: nil database")
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultTable
	}

	d := &Driver{db: db, table: table}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version uint64, dirty bool);
CREATE UNIQUE INDEX IF NOT EXISTS %s_version ON %s (version);`, table, table, table)
	if _, err := db.Exec(query); err != nil {
		return nil, &database.Error{OrigErr: err, Query: []byte(query)}
	}
	return d, nil
}

// Open is unsupported; use WithInstance
func (d *Driver) Open(string) (database.Driver, error) {
	return nil, errors.New("migrations: open by URL unsupported, use WithInstance")
}

// Close leaves the connection to its owner
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *Driver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run executes one migration file in a transaction
func (d *Driver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(body)); err != nil {
			return &database.Error{OrigErr: err, Query: body}
		}
		return nil
	})
}

func (d *Driver) SetVersion(version int, dirty bool) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + d.table); err != nil {
			return err
		}
		// A dirty nil version is kept so a failed first migration stays visible
		if version >= 0 || (version == database.NilVersion && dirty) {
			query := fmt.Sprintf("INSERT INTO %s (version, dirty) VALUES (?, ?)", d.table)
			if _, err := tx.Exec(query, version, dirty); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Driver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)
	err := d.db.QueryRow("SELECT version, dirty FROM " + d.table + " LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, &database.Error{OrigErr: err}
	}
	return version, dirty, nil
}

// Drop removes every table
func (d *Driver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := d.db.Exec("DROP TABLE " + name); err != nil {
			return &database.Error{OrigErr: err, Err: "drop " + name}
		}
	}
	return nil
}

func (d *Driver) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}
