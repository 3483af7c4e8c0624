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

package transitioner

// Device translates orchestrator task states and events into the state
// machine of a proxied messaging device. A single task event may expand
// into several wire transitions, committed in sequence.
type Device struct {
	DoTransition DoTransitionFunc

	stateMap    map[string]string
	invStateMap map[string]string
}

func NewDeviceTransitioner(transitionFunc DoTransitionFunc) *Device {
	stateMap := map[string]string{
		"STANDBY":    "IDLE",
		"CONFIGURED": "READY",
		"RUNNING":    "RUNNING",
		"ERROR":      "ERROR",
		"DONE":       "EXITING",
	}
	return &Device{
		DoTransition: transitionFunc,
		stateMap:     stateMap,
		invStateMap: func() (inv map[string]string) {
			inv = make(map[string]string, len(stateMap))
			for k, v := range stateMap {
				inv[v] = k
			}
			return
		}(),
	}
}

func (cm *Device) Commit(evt string, src string, dst string, args map[string]string) (finalState string, err error) {
	switch evt {
	case "START":
		finalState, err = cm.DoTransition(EventInfo{"RUN", cm.deviceStateForState(src), cm.deviceStateForState(dst), args})
		finalState = cm.stateForDeviceState(finalState)
	case "STOP":
		finalState, err = cm.DoTransition(EventInfo{"STOP", cm.deviceStateForState(src), cm.deviceStateForState(dst), args})
		finalState = cm.stateForDeviceState(finalState)
	case "GO_ERROR":
		finalState, err = cm.DoTransition(EventInfo{"ERROR FOUND", cm.deviceStateForState(src), cm.deviceStateForState(dst), args})
		finalState = cm.stateForDeviceState(finalState)
	case "RECOVER":
		fallthrough
	case "PAUSE":
		fallthrough
	case "RESUME":
		// The device state machine has no counterpart for these events.
		log.WithField("event", evt).Error("transition not implemented for device tasks")
		finalState = src
	case "CONFIGURE":
		finalState, err = cm.doConfigure(evt, src, dst, args)
	case "RESET":
		finalState, err = cm.doReset(evt, src, dst, args)
	case "EXIT":
		var state string
		if src == "CONFIGURED" { // We need to RESET first
			state, err = cm.doReset(evt, src, dst, args)
			if state != "STANDBY" {
				finalState = state
				break
			}
		}
		finalState, err = cm.DoTransition(EventInfo{"END", cm.deviceStateForState(src), cm.deviceStateForState(dst), args})
		finalState = cm.stateForDeviceState(finalState)
	default:
		log.WithField("event", evt).Error("transition impossible")
	}

	return
}

func (cm *Device) deviceStateForState(stateName string) string {
	if cm == nil {
		return ""
	}

	deviceState, ok := cm.stateMap[stateName]
	if !ok {
		return ""
	}
	return deviceState
}

func (cm *Device) stateForDeviceState(deviceStateName string) string {
	if cm == nil {
		return ""
	}

	state, ok := cm.invStateMap[deviceStateName]
	if !ok {
		return ""
	}
	return state
}

// doConfigure walks the device from IDLE to READY. The initialization
// leg carries the configuration arguments, the later legs carry none.
// If the device gets stuck in DEVICE READY after a failed INIT TASK, we
// roll back to IDLE so the task stays addressable.
func (cm *Device) doConfigure(evt string, src string, dst string, args map[string]string) (finalState string, err error) {
	var state string
	steps := []EventInfo{
		{"INIT DEVICE", cm.deviceStateForState(src), "INITIALIZING DEVICE", args},
		{"COMPLETE INIT", "INITIALIZING DEVICE", "INITIALIZED", nil},
		{"BIND", "INITIALIZED", "BOUND", nil},
		{"CONNECT", "BOUND", "DEVICE READY", nil},
	}
	for _, step := range steps {
		state, err = cm.DoTransition(step)
		if state != step.Dst {
			finalState = cm.stateForDeviceState(state)
			return
		}
	}
	state, err = cm.DoTransition(EventInfo{"INIT TASK", "DEVICE READY", cm.deviceStateForState(dst), nil})
	if state == "DEVICE READY" { // If we're stuck in the intermediate DEVICE READY state, we roll back to IDLE
		state, _ = cm.DoTransition(EventInfo{"RESET DEVICE", "DEVICE READY", cm.deviceStateForState(src), nil})
	}
	finalState = cm.stateForDeviceState(state)
	return
}

// doReset walks the device from READY back to IDLE, rolling forward to
// READY again if the device refuses to leave DEVICE READY.
func (cm *Device) doReset(evt string, src string, dst string, args map[string]string) (finalState string, err error) {
	var state string
	state, err = cm.DoTransition(EventInfo{"RESET TASK", cm.deviceStateForState(src), "DEVICE READY", nil})
	if state != "DEVICE READY" {
		finalState = cm.stateForDeviceState(state)
		return
	}
	state, err = cm.DoTransition(EventInfo{"RESET DEVICE", "DEVICE READY", cm.deviceStateForState(dst), args})
	if state == "DEVICE READY" { // If we're stuck in the intermediate DEVICE READY state, we roll back to READY
		state, _ = cm.DoTransition(EventInfo{"INIT TASK", "DEVICE READY", cm.deviceStateForState(src), nil})
	}
	finalState = cm.stateForDeviceState(state)
	return
}

func (cm *Device) FromDeviceState(state string) string {
	return cm.stateForDeviceState(state)
}
