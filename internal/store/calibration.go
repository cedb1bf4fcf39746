// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/roast_meter/internal/calibration"
)

const calValidKey = "cal_valid"

func ratioKey(i int) string { return "cal_r" + strconv.Itoa(i) }
func indexKey(i int) string { return "cal_a" + strconv.Itoa(i) }

// HistoryEntry is one committed calibration.
type HistoryEntry struct {
	SessionID   uuid.UUID           `json:"session_id"`
	CommittedAt time.Time           `json:"committed_at"`
	Points      []calibration.Point `json:"points"`
}

// LoadCurve returns the stored calibration. If the meter was never
// calibrated it returns the factory curve and false. A stored table that
// fails validation also yields the factory curve, together with the error.
func (s *Store) LoadCurve() (calibration.Curve, bool, error) {
	if !s.GetBool(calValidKey, false) {
		return calibration.DefaultCurve(), false, nil
	}

	points := make([]calibration.Point, calibration.NumPoints)
	for i := range points {
		def := calibration.DefaultPoints[i]
		points[i] = calibration.Point{
			Ratio:      s.GetFloat(ratioKey(i), def.Ratio),
			RoastIndex: s.GetInt(indexKey(i), def.RoastIndex),
		}
	}

	curve, err := calibration.Build(points)
	if err != nil {
		return calibration.DefaultCurve(), false, fmt.Errorf("stored calibration: %w", err)
	}
	return curve, true, nil
}

// SaveCurve writes every calibration point, the validity flag and a
// history row in one transaction, so a partial table is never persisted.
func (s *Store) SaveCurve(curve calibration.Curve, sessionID uuid.UUID) error {
	points := curve.Points()
	encoded, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode calibration points: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save calibration: %w", err)
	}
	defer tx.Rollback()

	for i, p := range points {
		if err := put(tx, ratioKey(i), strconv.FormatFloat(p.Ratio, 'g', -1, 64)); err != nil {
			return err
		}
		if err := put(tx, indexKey(i), strconv.Itoa(p.RoastIndex)); err != nil {
			return err
		}
	}
	if err := put(tx, calValidKey, strconv.FormatBool(true)); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO calibration_history (session_id, committed_at_ms, points) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET committed_at_ms = excluded.committed_at_ms, points = excluded.points`,
		sessionID.String(), time.Now().UnixMilli(), string(encoded),
	)
	if err != nil {
		return fmt.Errorf("record calibration history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit calibration: %w", err)
	}
	return nil
}

// ResetCurve marks the stored calibration invalid so the factory curve is
// used on the next load. The stored points are left in place.
func (s *Store) ResetCurve() error {
	return s.PutBool(calValidKey, false)
}

// CalibrationHistory returns committed calibrations, newest first.
func (s *Store) CalibrationHistory(limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT session_id, committed_at_ms, points FROM calibration_history
		 ORDER BY committed_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calibration history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			id      string
			atMs    int64
			encoded string
			e       HistoryEntry
		)
		if err := rows.Scan(&id, &atMs, &encoded); err != nil {
			return nil, fmt.Errorf("scan calibration history: %w", err)
		}
		if e.SessionID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("calibration history session id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(encoded), &e.Points); err != nil {
			return nil, fmt.Errorf("decode calibration history points: %w", err)
		}
		e.CommittedAt = time.UnixMilli(atMs)
		out = append(out, e)
	}
	return out, rows.Err()
}
