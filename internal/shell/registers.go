// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package shell

import "github.com/relabs-tech/roast_meter/internal/sensors"

type register struct {
	addr byte
	name string
}

// registerMap lists the sensor registers REGS reads.
func registerMap() []register {
	infos := sensors.MAX30105RegisterMap()
	out := make([]register, 0, len(infos))
	for _, r := range infos {
		out = append(out, register{addr: r.Address, name: r.Name})
	}
	return out
}
