package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// timestampLayout is how date + start_time are joined before parsing
const timestampLayout = "2006-01-02 15:04:05"

type Storage struct {
	db  *sql.DB
	loc *time.Location
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database and runs migrations. Appointment dates and times are
// stored as local wall clock in loc.
func New(dbPath string, loc *time.Location) (*Storage, error) {
	if loc == nil {
		loc = time.Local
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN so check-then-insert is serialized
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Location returns the timezone appointments are stored in
func (s *Storage) Location() *time.Location {
	return s.loc
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS servicios_oliva (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			categoria TEXT NOT NULL,
			nombre TEXT NOT NULL,
			duracion_txt TEXT DEFAULT '',
			precio_txt TEXT DEFAULT '',
			deposito_txt TEXT DEFAULT '',
			detalles TEXT DEFAULT '',
			duracion_min INTEGER,
			duracion_max INTEGER,
			precio_min REAL,
			precio_max REAL,
			deposito REAL,
			activo INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_servicios_nombre ON servicios_oliva(nombre)`,
		`CREATE INDEX IF NOT EXISTS idx_servicios_categoria ON servicios_oliva(categoria)`,
		`CREATE TABLE IF NOT EXISTS personal_oliva (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nombre TEXT NOT NULL,
			puesto TEXT DEFAULT '',
			telefono TEXT,
			email TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS clientes_oliva (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nombre TEXT NOT NULL,
			telefono TEXT UNIQUE,
			email TEXT UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS productos_oliva (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nombre TEXT UNIQUE NOT NULL,
			categoria TEXT DEFAULT '',
			detalles TEXT DEFAULT '',
			precio REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS citas_oliva (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cliente_id INTEGER NOT NULL,
			servicio_id INTEGER NOT NULL,
			empleado_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (date, start_time, empleado_id),
			FOREIGN KEY (cliente_id) REFERENCES clientes_oliva(id),
			FOREIGN KEY (servicio_id) REFERENCES servicios_oliva(id),
			FOREIGN KEY (empleado_id) REFERENCES personal_oliva(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citas_empleado_date ON citas_oliva(empleado_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_citas_cliente ON citas_oliva(cliente_id)`,
		// Telegram registration
		`ALTER TABLE clientes_oliva ADD COLUMN telegram_id INTEGER`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_clientes_telegram ON clientes_oliva(telegram_id)`,
		// Calendar sync
		`ALTER TABLE citas_oliva ADD COLUMN calendar_uid TEXT DEFAULT ''`,
		// Customer reminders
		`ALTER TABLE citas_oliva ADD COLUMN reminded_at DATETIME`,
		`CREATE INDEX IF NOT EXISTS idx_citas_reminded ON citas_oliva(reminded_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// IsConflict reports whether err is a unique constraint violation,
// e.g. two appointments for the same employee, date and start time.
func IsConflict(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Storage) parseStart(date, clock string) (time.Time, error) {
	if len(clock) == len("15:04") {
		clock += ":00"
	}
	t, err := time.ParseInLocation(timestampLayout, date+" "+clock, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment start %q %q: %w", date, clock, err)
	}
	return t, nil
}
