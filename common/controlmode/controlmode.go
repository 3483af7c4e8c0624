/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2018-2023 CERN and copyright holders of ALICE O².
 * Author: Teo Mrnjavac <teo.mrnjavac@cern.ch>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

// Package controlmode contains the enum for switching between task
// control modes on the orchestrator side.
package controlmode

import (
	"strings"
)

type ControlMode int

const (
	// DIRECT drives an embedded task state machine, one event per
	// Transition call, with no state translation.
	DIRECT ControlMode = iota
	// DEVICE drives a proxied messaging device, with state translation
	// and multi-event composite transitions.
	DEVICE
)

func (cm ControlMode) String() string {
	switch cm {
	case DIRECT:
		return "direct"
	case DEVICE:
		return "device"
	}
	return "direct"
}

func (cm *ControlMode) UnmarshalJSON(b []byte) error {
	return cm.UnmarshalText(b)
}

func (cm *ControlMode) UnmarshalText(b []byte) error {
	str := strings.ToLower(strings.Trim(string(b), `"`))

	switch str {
	case "direct":
		*cm = DIRECT
	case "device", "fairmq":
		*cm = DEVICE
	default:
		*cm = DIRECT
	}
	return nil
}

func (cm ControlMode) MarshalText() ([]byte, error) {
	return []byte(cm.String()), nil
}
