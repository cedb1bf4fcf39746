// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sample

// Measurement is one averaged red/IR reading of the sample under the sensor.
// When Valid is false only Readings is meaningful.
type Measurement struct {
	Red        uint32  `json:"red"`
	IR         uint32  `json:"ir"`
	Ratio      float64 `json:"ratio"`       // Red / IR
	RoastIndex int     `json:"roast_index"` // filled by the engine
	Valid      bool    `json:"valid"`

	// Diagnostics over the accepted raw pairs.
	Readings  int     `json:"readings"`
	RedStdDev float64 `json:"red_stddev"`
	IRStdDev  float64 `json:"ir_stddev"`
}
