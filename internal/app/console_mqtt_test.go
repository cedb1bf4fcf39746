// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/roast_meter/internal/calibration"
)

func TestPrintMeasurement(t *testing.T) {
	ts := time.Date(2026, 1, 2, 10, 11, 12, 345e6, time.Local)
	present, err := json.Marshal(MeasurementMessage{
		Time: ts, Present: true, Mode: "RATIO", Red: 20000, IR: 40000, Ratio: 0.5, RoastIndex: 42,
	})
	require.NoError(t, err)
	empty, err := json.Marshal(MeasurementMessage{Time: ts})
	require.NoError(t, err)

	var out bytes.Buffer
	printMeasurement(&out, present)
	printMeasurement(&out, empty)
	printMeasurement(&out, []byte("not json"))

	assert.Equal(t,
		"[ROAST] 10:11:12.345  mode=RATIO red= 20000 ir= 40000 ratio=0.5000 roast= 42\n"+
			"[ROAST] 10:11:12.345  no sample\n",
		out.String())
}

func TestPrintCalibration(t *testing.T) {
	payload, err := json.Marshal(CalibrationMessage{
		Time:       time.Date(2026, 1, 2, 10, 11, 12, 0, time.Local),
		Calibrated: true,
		Points:     calibration.DefaultCurve().Points(),
	})
	require.NoError(t, err)

	var out bytes.Buffer
	printCalibration(&out, payload)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+calibration.NumPoints)
	assert.Equal(t, "[CAL  ] 2026-01-02 10:11:12  custom curve", lines[0])
	assert.Contains(t, lines[1], "1  ratio=")
}
