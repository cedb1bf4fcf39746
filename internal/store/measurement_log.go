// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	BeginCSVMarker = "--- BEGIN CSV ---"
	EndCSVMarker   = "--- END CSV ---"
)

// LogEntry is one row of the measurement log.
type LogEntry struct {
	Time          time.Time
	Red           uint32
	IR            uint32
	Ratio         float64
	RoastIndex    int
	Mode          string
	LEDBrightness int
}

// AppendMeasurement records e and drops the oldest rows beyond the cap.
func (s *Store) AppendMeasurement(e LogEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append measurement: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO measurements (taken_at_ms, red, ir, ratio, roast_index, mode, led_brightness)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixMilli(), e.Red, e.IR, e.Ratio, e.RoastIndex, e.Mode, e.LEDBrightness,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}

	_, err = tx.Exec(
		`DELETE FROM measurements WHERE id NOT IN (
		   SELECT id FROM measurements ORDER BY id DESC LIMIT ?)`,
		s.opts.MaxLogEntries,
	)
	if err != nil {
		return fmt.Errorf("prune measurements: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit measurement: %w", err)
	}
	return nil
}

// CountMeasurements returns the number of logged rows.
func (s *Store) CountMeasurements() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM measurements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count measurements: %w", err)
	}
	return n, nil
}

// ClearMeasurements empties the log.
func (s *Store) ClearMeasurements() error {
	if _, err := s.db.Exec(`DELETE FROM measurements`); err != nil {
		return fmt.Errorf("clear measurements: %w", err)
	}
	return nil
}

// DumpMeasurements writes the log oldest first as CSV framed by the
// begin/end markers, and returns the number of rows written.
func (s *Store) DumpMeasurements(w io.Writer) (int, error) {
	rows, err := s.db.Query(
		`SELECT taken_at_ms, red, ir, ratio, roast_index, mode, led_brightness
		 FROM measurements ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	if _, err := fmt.Fprintln(w, BeginCSVMarker); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"millis", "red", "ir", "ratio", "roast_index", "mode", "led_brightness"}); err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		var e LogEntry
		var atMs int64
		if err := rows.Scan(&atMs, &e.Red, &e.IR, &e.Ratio, &e.RoastIndex, &e.Mode, &e.LEDBrightness); err != nil {
			return n, fmt.Errorf("scan measurement: %w", err)
		}
		record := []string{
			strconv.FormatInt(atMs, 10),
			strconv.FormatUint(uint64(e.Red), 10),
			strconv.FormatUint(uint64(e.IR), 10),
			strconv.FormatFloat(e.Ratio, 'f', 4, 64),
			strconv.Itoa(e.RoastIndex),
			e.Mode,
			strconv.Itoa(e.LEDBrightness),
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterate measurements: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, err
	}
	_, err = fmt.Fprintln(w, EndCSVMarker)
	return n, err
}
