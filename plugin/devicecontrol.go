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

// Package plugin mirrors the state machine of an externally managed
// messaging device and exposes it over the OCC control protocol. The
// device is not owned by this package: its runtime drives the actual
// transitions, and we subscribe, request and observe through the
// DeviceController interface.
package plugin

import (
	"strings"

	"github.com/AliceO2Group/occ/common/logger"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "occplugin")

// ControllerName identifies this plugin to the device runtime when
// taking and releasing device control.
const ControllerName = "OCC"

// Device states as reported by the messaging device runtime.
const (
	DeviceIdle               = "IDLE"
	DeviceInitializingDevice = "INITIALIZING DEVICE"
	DeviceInitialized        = "INITIALIZED"
	DeviceBinding            = "BINDING"
	DeviceBound              = "BOUND"
	DeviceConnecting         = "CONNECTING"
	DeviceDeviceReady        = "DEVICE READY"
	DeviceInitializingTask   = "INITIALIZING TASK"
	DeviceReady              = "READY"
	DeviceRunning            = "RUNNING"
	DeviceResettingTask      = "RESETTING TASK"
	DeviceResettingDevice    = "RESETTING DEVICE"
	DeviceExiting            = "EXITING"
	DeviceError              = "ERROR"
)

// ExpectedFinalState maps each device transition event to the stable
// state the device is expected to settle in.
var ExpectedFinalState = map[string]string{
	"INIT DEVICE":   DeviceInitializingDevice,
	"COMPLETE INIT": DeviceInitialized,
	"BIND":          DeviceBound,
	"CONNECT":       DeviceDeviceReady,
	"INIT TASK":     DeviceReady,
	"RUN":           DeviceRunning,
	"STOP":          DeviceReady,
	"RESET TASK":    DeviceDeviceReady,
	"RESET DEVICE":  DeviceIdle,
	"END":           DeviceExiting,
	"ERROR FOUND":   DeviceError,
}

// IsIntermediateDeviceState reports whether the given state is an auto
// state the device traverses without external command. The transition
// coordinator waits past these before replying.
func IsIntermediateDeviceState(state string) bool {
	return strings.Contains(state, DeviceInitializingTask) ||
		strings.Contains(state, "RESETTING") ||
		strings.Contains(state, DeviceBinding) ||
		strings.Contains(state, DeviceConnecting)
}

// DeviceController is the surface of the messaging device runtime that
// the plugin consumes. Callbacks fire on the runtime's own goroutine,
// so implementations of the state change callback must not block.
type DeviceController interface {
	// CurrentDeviceState returns the device's view of its state.
	CurrentDeviceState() string
	// SubscribeToDeviceStateChange registers a callback under the
	// given subscription id, invoked for every state the device
	// reaches.
	SubscribeToDeviceStateChange(id string, onStateChange func(state string)) error
	// UnsubscribeFromDeviceStateChange removes the callback.
	UnsubscribeFromDeviceStateChange(id string)
	// ChangeDeviceState requests a device transition on behalf of the
	// named controller. It fails if the controller does not hold
	// device control or the transition name is not accepted.
	ChangeDeviceState(controller string, transitionEvent string) error
	// SetProperty injects a configuration property into the device.
	SetProperty(key string, value interface{}) error
	// PropertyKeys lists the currently known property keys.
	PropertyKeys() []string
	// TakeDeviceControl and ReleaseDeviceControl manage the exclusive
	// right to call ChangeDeviceState.
	TakeDeviceControl(controller string) error
	ReleaseDeviceControl(controller string) error
}
