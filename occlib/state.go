/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2018-2023 CERN and copyright holders of ALICE O².
 * Author: Teo Mrnjavac <teo.mrnjavac@cern.ch>
 *         Sylvain Chapeland <sylvain.chapeland@cern.ch>
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

package occlib

import (
	"strings"

	"github.com/looplab/fsm"
)

// State is the lifecycle state of a controlled task.
type State int

const (
	UNDEFINED State = iota
	STANDBY
	CONFIGURED
	RUNNING
	PAUSED
	ERROR
	DONE
)

func (s State) String() string {
	switch s {
	case STANDBY:
		return "STANDBY"
	case CONFIGURED:
		return "CONFIGURED"
	case RUNNING:
		return "RUNNING"
	case PAUSED:
		return "PAUSED"
	case ERROR:
		return "ERROR"
	case DONE:
		return "DONE"
	}
	return "UNDEFINED"
}

func StateFromString(str string) State {
	switch strings.ToUpper(str) {
	case "STANDBY":
		return STANDBY
	case "CONFIGURED":
		return CONFIGURED
	case "RUNNING":
		return RUNNING
	case "PAUSED":
		return PAUSED
	case "ERROR":
		return ERROR
	case "DONE":
		return DONE
	}
	return UNDEFINED
}

// ExpectedFinalState maps each transition event to the state an
// orchestrator expects the machine to settle in when the transition
// succeeds. Events missing from the transition table for the current
// state (such as GO_ERROR, which is never externally requestable)
// still carry an expectation here so that replies can be classified.
var ExpectedFinalState = map[string]string{
	"CONFIGURE": "CONFIGURED",
	"RESET":     "STANDBY",
	"START":     "RUNNING",
	"STOP":      "CONFIGURED",
	"PAUSE":     "PAUSED",
	"RESUME":    "RUNNING",
	"EXIT":      "DONE",
	"GO_ERROR":  "ERROR",
	"RECOVER":   "STANDBY",
}

// newMachine builds the transition table for the embedded variant.
// The table is the single source of truth for which (state, event)
// pairs are valid; hook dispatch and failure handling live in the
// server, which force-moves the machine to ERROR on non-zero hook
// return regardless of the table.
func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		STANDBY.String(),
		fsm.Events{
			{Name: "CONFIGURE", Src: []string{"STANDBY"}, Dst: "CONFIGURED"},
			{Name: "RESET", Src: []string{"CONFIGURED"}, Dst: "STANDBY"},
			{Name: "START", Src: []string{"CONFIGURED"}, Dst: "RUNNING"},
			{Name: "STOP", Src: []string{"RUNNING", "PAUSED"}, Dst: "CONFIGURED"},
			{Name: "PAUSE", Src: []string{"RUNNING"}, Dst: "PAUSED"},
			{Name: "RESUME", Src: []string{"PAUSED"}, Dst: "RUNNING"},
			{Name: "EXIT", Src: []string{"STANDBY", "CONFIGURED", "ERROR"}, Dst: "DONE"},
			{Name: "RECOVER", Src: []string{"ERROR"}, Dst: "STANDBY"},
		},
		fsm.Callbacks{},
	)
}
