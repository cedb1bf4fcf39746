// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "errors"

// Curve construction errors. Neither can occur from a correct Finalize.
var (
	ErrWrongPointCount    = errors.New("wrong number of calibration points")
	ErrNonMonotonicPoints = errors.New("calibration ratios not strictly increasing")
)

// Session errors, reported to the operator.
var (
	ErrSessionFull        = errors.New("maximum calibration points reached")
	ErrInvalidSample      = errors.New("cannot take measurement, check sample")
	ErrInsufficientPoints = errors.New("not enough calibration points")
)
