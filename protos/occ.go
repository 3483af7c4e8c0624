/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2020-2023 CERN and copyright holders of ALICE O².
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

// Package pb defines the OCC wire contract. Unlike a protoc-generated
// package, the OCC-lite transport is JSON over gRPC, so the message
// types are plain structs serialized by the json codec in this package.
// Method names and enum values match occ.proto, which remains the
// canonical definition of the protocol.
package pb

type StateChangeTrigger int32

const (
	StateChangeTrigger_EXECUTOR           StateChangeTrigger = 0
	StateChangeTrigger_DEVICE_INTENTIONAL StateChangeTrigger = 1
	StateChangeTrigger_DEVICE_ERROR       StateChangeTrigger = 2
)

var stateChangeTriggerName = map[StateChangeTrigger]string{
	StateChangeTrigger_EXECUTOR:           "EXECUTOR",
	StateChangeTrigger_DEVICE_INTENTIONAL: "DEVICE_INTENTIONAL",
	StateChangeTrigger_DEVICE_ERROR:       "DEVICE_ERROR",
}

func (t StateChangeTrigger) String() string {
	if s, ok := stateChangeTriggerName[t]; ok {
		return s
	}
	return "UNKNOWN"
}

type StateType int32

const (
	StateType_STATE_STABLE       StateType = 0
	StateType_STATE_INTERMEDIATE StateType = 1
)

func (t StateType) String() string {
	if t == StateType_STATE_INTERMEDIATE {
		return "STATE_INTERMEDIATE"
	}
	return "STATE_STABLE"
}

type DeviceEventType int32

const (
	DeviceEventType_NULL_DEVICE_EVENT     DeviceEventType = 0
	DeviceEventType_END_OF_STREAM         DeviceEventType = 1
	DeviceEventType_BASIC_TASK_TERMINATED DeviceEventType = 2
	DeviceEventType_TASK_INTERNAL_ERROR   DeviceEventType = 3
)

var deviceEventTypeName = map[DeviceEventType]string{
	DeviceEventType_NULL_DEVICE_EVENT:     "NULL_DEVICE_EVENT",
	DeviceEventType_END_OF_STREAM:         "END_OF_STREAM",
	DeviceEventType_BASIC_TASK_TERMINATED: "BASIC_TASK_TERMINATED",
	DeviceEventType_TASK_INTERNAL_ERROR:   "TASK_INTERNAL_ERROR",
}

func (t DeviceEventType) String() string {
	if s, ok := deviceEventTypeName[t]; ok {
		return s
	}
	return "UNKNOWN"
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (m *ConfigEntry) GetKey() string {
	if m == nil {
		return ""
	}
	return m.Key
}

func (m *ConfigEntry) GetValue() string {
	if m == nil {
		return ""
	}
	return m.Value
}

type GetStateRequest struct{}

type GetStateReply struct {
	State string `json:"state"`
	Pid   int32  `json:"pid"`
}

func (m *GetStateReply) GetState() string {
	if m == nil {
		return ""
	}
	return m.State
}

func (m *GetStateReply) GetPid() int32 {
	if m == nil {
		return 0
	}
	return m.Pid
}

type TransitionRequest struct {
	SrcState        string         `json:"srcState"`
	TransitionEvent string         `json:"transitionEvent"`
	Arguments       []*ConfigEntry `json:"arguments"`
}

func (m *TransitionRequest) GetSrcState() string {
	if m == nil {
		return ""
	}
	return m.SrcState
}

func (m *TransitionRequest) GetTransitionEvent() string {
	if m == nil {
		return ""
	}
	return m.TransitionEvent
}

func (m *TransitionRequest) GetArguments() []*ConfigEntry {
	if m == nil {
		return nil
	}
	return m.Arguments
}

type TransitionReply struct {
	Trigger         StateChangeTrigger `json:"trigger"`
	State           string             `json:"state"`
	TransitionEvent string             `json:"transitionEvent"`
	Ok              bool               `json:"ok"`
}

func (m *TransitionReply) GetTrigger() StateChangeTrigger {
	if m == nil {
		return StateChangeTrigger_EXECUTOR
	}
	return m.Trigger
}

func (m *TransitionReply) GetState() string {
	if m == nil {
		return ""
	}
	return m.State
}

func (m *TransitionReply) GetTransitionEvent() string {
	if m == nil {
		return ""
	}
	return m.TransitionEvent
}

func (m *TransitionReply) GetOk() bool {
	if m == nil {
		return false
	}
	return m.Ok
}

type StateStreamRequest struct{}

type StateStreamReply struct {
	Type  StateType `json:"type"`
	State string    `json:"state"`
}

func (m *StateStreamReply) GetType() StateType {
	if m == nil {
		return StateType_STATE_STABLE
	}
	return m.Type
}

func (m *StateStreamReply) GetState() string {
	if m == nil {
		return ""
	}
	return m.State
}

type EventStreamRequest struct{}

type DeviceEvent struct {
	Type DeviceEventType `json:"type"`
}

func (m *DeviceEvent) GetType() DeviceEventType {
	if m == nil {
		return DeviceEventType_NULL_DEVICE_EVENT
	}
	return m.Type
}

type EventStreamReply struct {
	Event *DeviceEvent `json:"event"`
}

func (m *EventStreamReply) GetEvent() *DeviceEvent {
	if m == nil {
		return nil
	}
	return m.Event
}
