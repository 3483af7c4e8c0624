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

package plugin

import (
	"strings"
	"sync"

	"github.com/AliceO2Group/occ/occlib"
	pb "github.com/AliceO2Group/occ/protos"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// doTransition requests a device state transition and blocks until the
// device settles in a stable state, past any auto intermediate states.
// The visited state list is observed through a transition-scoped device
// subscription, which is always released before returning.
func doTransition(dc DeviceController, req *pb.TransitionRequest) (*pb.TransitionReply, error) {
	srcState := req.GetSrcState()
	event := req.GetTransitionEvent()
	arguments := req.GetArguments()

	currentState := dc.CurrentDeviceState()
	if srcState != currentState {
		return nil, status.Error(codes.InvalidArgument,
			"transition not possible: state mismatch: source: "+srcState+" current: "+currentState)
	}

	finalState, eventKnown := ExpectedFinalState[event]
	if !eventKnown {
		return nil, status.Error(codes.InvalidArgument,
			"argument "+event+" is not a valid transition name")
	}

	log.WithFields(logrus.Fields{
		"src":     srcState,
		"current": currentState,
		"event":   event,
	}).Debug("transition requested")

	var (
		statesMu  sync.Mutex
		newStates []string
	)
	notify := make(chan string, 64)

	onDeviceStateChange := func(reachedState string) {
		// CONFIGURE arguments must be pushed while the device is
		// initializing.
		if reachedState == DeviceInitializingDevice {
			injectProperties(dc, arguments)
		}

		statesMu.Lock()
		newStates = append(newStates, reachedState)
		statesMu.Unlock()
		select {
		case notify <- reachedState:
		default:
		}
	}

	id := occlib.GenerateSubscriptionId("Transition")
	if err := dc.SubscribeToDeviceStateChange(id, onDeviceStateChange); err != nil {
		return nil, status.Error(codes.Internal, "cannot observe device state")
	}
	defer dc.UnsubscribeFromDeviceStateChange(id)

	// Run number must be pushed immediately before RUN, not on a state
	// entry like the other properties.
	if event == "RUN" {
		for _, entry := range arguments {
			if err := dc.SetProperty(entry.GetKey(), entry.GetValue()); err != nil {
				log.WithError(err).
					WithField("key", entry.GetKey()).
					Warn("cannot push RUN transition argument")
			}
		}
	}

	if err := dc.ChangeDeviceState(ControllerName, event); err != nil {
		log.WithError(err).
			WithField("event", event).
			Error("cannot request transition")
		return nil, status.Error(codes.Internal, "cannot request transition, OCC plugin has no device control")
	}

	lastState := func() (string, bool) {
		statesMu.Lock()
		defer statesMu.Unlock()
		if len(newStates) == 0 {
			return "", false
		}
		return newStates[len(newStates)-1], true
	}

	// If no state has landed yet, or the last one is an auto state
	// about to be left again, block until the device settles. The
	// landed state is re-read after every wakeup: the callback drops
	// its notification when the channel is full, so the received
	// value alone can miss the settling state.
	if last, ok := lastState(); !ok || IsIntermediateDeviceState(last) {
		for reachedState := range notify {
			log.WithField("state", reachedState).
				Debug("transition notify condition met")
			if last, ok = lastState(); ok && !IsIntermediateDeviceState(last) {
				break
			}
		}
	}

	last, ok := lastState()
	if !ok {
		return nil, status.Error(codes.Internal,
			"no transitions made, current state stays "+srcState)
	}

	if last == DeviceExiting {
		if err := dc.ReleaseDeviceControl(ControllerName); err != nil {
			log.WithError(err).Warn("cannot release device control")
		} else {
			log.Debug("releasing device control")
		}
	}

	rep := &pb.TransitionReply{
		State:           last,
		TransitionEvent: event,
		Ok:              last == finalState,
	}
	switch {
	case last == DeviceError:
		rep.Trigger = pb.StateChangeTrigger_DEVICE_ERROR
	case last == finalState:
		rep.Trigger = pb.StateChangeTrigger_EXECUTOR
	default:
		// Some other state, for whatever reason - we assume the device
		// got there on purpose.
		rep.Trigger = pb.StateChangeTrigger_DEVICE_INTENTIONAL
	}

	statesMu.Lock()
	visited := strings.Join(newStates, ", ")
	statesMu.Unlock()
	log.WithField("states", visited).Debug("transition done")

	return rep, nil
}

// injectProperties drains the transition arguments into the device
// property store, honoring the channel integer typing and the
// __ptree__ typed-subtree rules. Channel properties keep their full
// chans.<name>.<prop> path.
func injectProperties(dc DeviceController, arguments []*pb.ConfigEntry) {
	for _, entry := range arguments {
		key := entry.GetKey()
		value := entry.GetValue()

		switch {
		case strings.HasPrefix(key, "__ptree__:"):
			newKey, subtree, err := occlib.PropMapEntryToTree(key, value)
			if err != nil {
				log.WithError(err).
					WithField("key", key).
					Warn("dropping configuration payload entry")
				continue
			}
			if err = dc.SetProperty(newKey, subtree); err != nil {
				log.WithError(err).
					WithField("key", newKey).
					Warn("cannot set device property")
			}
		default:
			if err := dc.SetProperty(key, occlib.ChannelPropertyValue(key, value)); err != nil {
				log.WithError(err).
					WithField("key", key).
					Warn("cannot set device property")
			}
		}
	}
}
