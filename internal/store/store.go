// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store is the meter's durable key/value preferences, calibration
// table and measurement log, kept in a single SQLite file.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// ValidKey holds ValidCode once the preferences have been initialized.
	ValidKey  = "valid"
	ValidCode = 0xAB

	LEDBrightnessKey     = "led_brightness"
	LEDBrightnessDefault = 95

	// DefaultMaxLogEntries caps the measurement log.
	DefaultMaxLogEntries = 65000
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	opts Options
}

// Options tune a Store.
type Options struct {
	// MaxLogEntries caps the measurement log. Zero or less takes the default.
	MaxLogEntries int
	// LEDBrightness is written when the preferences are first initialized.
	// 0 is a valid brightness; values outside 0..255 take the default.
	LEDBrightness int
}

// DefaultOptions returns the reference log cap and LED brightness.
func DefaultOptions() Options {
	return Options{
		MaxLogEntries: DefaultMaxLogEntries,
		LEDBrightness: LEDBrightnessDefault,
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Open opens (creating if needed) the database at path, applies pending
// migrations and initializes the preferences on first use.
func Open(path string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// one writer; avoids SQLITE_BUSY between the run loop and HTTP handlers
	db.SetMaxOpenConns(1)

	if opts.MaxLogEntries <= 0 {
		opts.MaxLogEntries = DefaultMaxLogEntries
	}
	if opts.LEDBrightness < 0 || opts.LEDBrightness > 255 {
		opts.LEDBrightness = LEDBrightnessDefault
	}
	s := &Store{db: db, opts: opts}

	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initPrefs(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	// m.Close would close the shared *sql.DB, so it is left open.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Printf("store: [migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

// initPrefs writes the defaults when the validity code is missing.
func (s *Store) initPrefs() error {
	if s.Valid() {
		return nil
	}
	log.Println("store: preferences were invalid, initializing defaults")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin init prefs: %w", err)
	}
	defer tx.Rollback()

	if err := put(tx, ValidKey, strconv.Itoa(ValidCode)); err != nil {
		return err
	}
	if err := put(tx, LEDBrightnessKey, strconv.Itoa(s.opts.LEDBrightness)); err != nil {
		return err
	}
	if err := put(tx, calValidKey, strconv.FormatBool(false)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit init prefs: %w", err)
	}
	return nil
}

// Valid reports whether the preferences carry the current validity code.
func (s *Store) Valid() bool {
	return s.GetInt(ValidKey, 0) == ValidCode
}

func put(e execer, key, value string) error {
	_, err := e.Exec(
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// get returns the raw value for key and whether it exists.
func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		log.Printf("store: WARNING: get %s: %v", key, err)
		return "", false
	}
	return value, true
}

// GetFloat returns the float stored at key, or def if absent or unparsable.
func (s *Store) GetFloat(key string, def float64) float64 {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("store: WARNING: %s=%q is not a float: %v", key, v, err)
		return def
	}
	return f
}

// GetInt returns the integer stored at key, or def if absent or unparsable.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("store: WARNING: %s=%q is not an int: %v", key, v, err)
		return def
	}
	return i
}

// GetBool returns the bool stored at key, or def if absent or unparsable.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("store: WARNING: %s=%q is not a bool: %v", key, v, err)
		return def
	}
	return b
}

// PutFloat stores a float.
func (s *Store) PutFloat(key string, v float64) error {
	return put(s.db, key, strconv.FormatFloat(v, 'g', -1, 64))
}

// PutInt stores an integer.
func (s *Store) PutInt(key string, v int) error {
	return put(s.db, key, strconv.Itoa(v))
}

// PutBool stores a bool.
func (s *Store) PutBool(key string, v bool) error {
	return put(s.db, key, strconv.FormatBool(v))
}
