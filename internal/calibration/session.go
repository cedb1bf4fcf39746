// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/relabs-tech/roast_meter/internal/sample"
)

const (
	// MinPoints is the fewest captured points Finalize accepts.
	MinPoints = 3

	// FillStep is the ratio spacing of synthesized points.
	FillStep = 0.1
)

// Session accumulates operator reference points until they are finalized
// into a new Curve. It is not safe for concurrent use.
type Session struct {
	id     uuid.UUID
	points []Point // capture order
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		id:     uuid.New(),
		points: make([]Point, 0, NumPoints),
	}
}

// ID identifies the current session. It changes on Clear.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Len returns the number of captured points.
func (s *Session) Len() int {
	return len(s.points)
}

// Points returns the captured points in capture order.
func (s *Session) Points() []Point {
	return slices.Clone(s.points)
}

// AddPoint records the ratio of m against a known roast index and returns
// the new point count.
func (s *Session) AddPoint(known int, m sample.Measurement) (int, error) {
	if len(s.points) >= NumPoints {
		return len(s.points), ErrSessionFull
	}
	if !m.Valid {
		return len(s.points), ErrInvalidSample
	}
	s.points = append(s.points, Point{Ratio: m.Ratio, RoastIndex: known})
	return len(s.points), nil
}

// Clear discards all captured points.
func (s *Session) Clear() {
	s.points = s.points[:0]
	s.id = uuid.New()
}

// Finalize sorts the captured points by ratio, synthesizes any missing
// points past the highest one, and builds a curve. commit is called with
// the curve before the session is cleared; if it fails the session keeps
// its points.
//
// Synthetic points continue the slope of the last two captured points at
// FillStep ratio intervals, so three references are enough for a curve.
func (s *Session) Finalize(commit func(Curve) error) (Curve, error) {
	if len(s.points) < MinPoints {
		return Curve{}, fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientPoints, len(s.points), MinPoints)
	}

	points := fill(sortedCopy(s.points))

	curve, err := Build(points)
	if err != nil {
		return Curve{}, err
	}
	if commit != nil {
		if err := commit(curve); err != nil {
			return Curve{}, err
		}
	}
	s.Clear()
	return curve, nil
}

// sortedCopy orders points by ratio. Equal ratios keep capture order.
func sortedCopy(points []Point) []Point {
	out := slices.Clone(points)
	slices.SortStableFunc(out, func(a, b Point) int {
		return cmp.Compare(a.Ratio, b.Ratio)
	})
	return out
}

const fillEpsilon = 1e-9

// fill extends sorted points to NumPoints.
func fill(points []Point) []Point {
	n := len(points)
	if n >= NumPoints {
		return points
	}
	a, b := points[n-2], points[n-1]
	// Equal ratios leave step at zero; Build rejects the tie afterwards.
	var step int
	if m := slope(a, b); !math.IsInf(m, 0) && !math.IsNaN(m) {
		// Truncated toward zero after absorbing float error, so a slope
		// that is a whole number of indexes per step keeps that number.
		step = int(m*FillStep + math.Copysign(fillEpsilon, m))
	}
	for len(points) < NumPoints {
		prev := points[len(points)-1]
		points = append(points, Point{
			Ratio:      prev.Ratio + FillStep,
			RoastIndex: prev.RoastIndex + step,
		})
	}
	return points
}
