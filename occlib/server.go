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
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AliceO2Group/occ/common/logger"
	pb "github.com/AliceO2Group/occ/protos"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var log = logger.New(logrus.StandardLogger(), "occlib")

const checkerInterval = 1 * time.Millisecond

// Server drives a RuntimeControlledObject through its lifecycle on
// behalf of a remote orchestrator. A single mutex serializes the state
// field, all task hook invocations and externally requested
// transitions; the checker goroutine competes for the same mutex, so a
// long transition hook delays periodic iterations by design of the
// protocol, not by accident.
type Server struct {
	mu  sync.Mutex
	rco RuntimeControlledObject
	sm  *fsm.FSM

	stateSubs *subscriberRegistry[State]
	eventSubs *subscriberRegistry[*pb.DeviceEvent]

	destroying     atomic.Bool
	machineDone    bool
	checkerStopped chan struct{}
}

// NewServer creates the control service around the given task and
// starts the checker goroutine. The machine is promoted from UNDEFINED
// to STANDBY before the first request can observe it.
func NewServer(rco RuntimeControlledObject) *Server {
	s := &Server{
		rco:            rco,
		sm:             newMachine(),
		stateSubs:      newSubscriberRegistry[State](),
		eventSubs:      newSubscriberRegistry[*pb.DeviceEvent](),
		checkerStopped: make(chan struct{}),
	}
	go s.runChecker()
	return s
}

// Destroy stops the checker goroutine and waits for it to exit.
func (s *Server) Destroy() {
	if s.destroying.Swap(true) {
		return
	}
	<-s.checkerStopped
}

func (s *Server) currentState() State {
	return StateFromString(s.sm.Current())
}

// CheckMachineDone reports whether the terminal state was reached.
func (s *Server) CheckMachineDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machineDone
}

// updateState publishes the new state to all subscribers, then makes
// it current. Callers hold s.mu.
func (s *Server) updateState(newState State) {
	s.stateSubs.Publish(newState)
	s.sm.SetState(newState.String())
	log.WithField("state", newState.String()).
		WithField("task", s.rco.Name()).
		Info("task state updated")
	if newState == DONE {
		s.machineDone = true
		// Terminal: let event subscribers run down their streams.
		s.pushEvent(&pb.DeviceEvent{Type: pb.DeviceEventType_NULL_DEVICE_EVENT})
	}
}

func (s *Server) pushEvent(event *pb.DeviceEvent) {
	s.eventSubs.Publish(event)
	log.WithField("event", event.GetType().String()).
		WithField("task", s.rco.Name()).
		Debug("pushing device event")
}

// GetState implements the GetState RPC.
func (s *Server) GetState(_ context.Context, _ *pb.GetStateRequest) (*pb.GetStateReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &pb.GetStateReply{
		State: s.currentState().String(),
		Pid:   int32(os.Getpid()),
	}, nil
}

// Transition implements the Transition RPC: it requests a state
// transition from the controlled task and blocks until success or
// failure.
func (s *Server) Transition(_ context.Context, req *pb.TransitionRequest) (*pb.TransitionReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "null request received")
	}

	srcState := req.GetSrcState()
	event := req.GetTransitionEvent()

	currentState := s.currentState()
	currentStateStr := currentState.String()
	if srcState != currentStateStr {
		return nil, status.Error(codes.InvalidArgument,
			"transition not possible: state mismatch: source: "+srcState+" current: "+currentStateStr)
	}
	if currentState == DONE {
		return nil, status.Error(codes.FailedPrecondition,
			"transition not possible: current state: "+currentStateStr)
	}

	finalState, eventKnown := ExpectedFinalState[event]
	if !eventKnown {
		return nil, status.Error(codes.InvalidArgument,
			"argument "+event+" is not a valid transition name")
	}

	properties := DecodeProperties(req.GetArguments())

	newState := s.processStateTransition(event, properties)
	newStateStr := newState.String()

	rep := &pb.TransitionReply{
		State:           newStateStr,
		TransitionEvent: event,
		Ok:              newStateStr == finalState,
	}
	switch {
	case newState == ERROR:
		rep.Trigger = pb.StateChangeTrigger_DEVICE_ERROR
	case newStateStr == finalState:
		rep.Trigger = pb.StateChangeTrigger_EXECUTOR
	default:
		// Some other state, for whatever reason - we assume the device
		// got there on purpose.
		rep.Trigger = pb.StateChangeTrigger_DEVICE_INTENTIONAL
	}
	return rep, nil
}

// processStateTransition dispatches the event to the task hook and
// moves the machine accordingly. An event not accepted by the
// transition table in the current state leaves the state untouched.
// Callers hold s.mu.
func (s *Server) processStateTransition(event string, properties PropertyMap) State {
	currentState := s.currentState()
	newState := currentState

	runNumber := properties.runNumber()
	s.rco.Identity().setRunNumber(runNumber)

	log.WithFields(logrus.Fields{
		"task":      s.rco.Name(),
		"event":     event,
		"state":     currentState.String(),
		"runNumber": runNumber,
	}).Info("processing transition event")

	if !s.sm.Can(event) {
		log.WithField("event", event).
			WithField("state", currentState.String()).
			WithField("task", s.rco.Name()).
			Warn("invalid event received in state")
		return newState
	}

	var hookErr int
	switch event {
	case "CONFIGURE":
		hookErr = s.rco.ExecuteConfigure(properties)
	case "RESET":
		hookErr = s.rco.ExecuteReset()
	case "RECOVER":
		hookErr = s.rco.ExecuteRecover()
	case "START":
		hookErr = s.rco.ExecuteStart()
	case "STOP":
		hookErr = s.rco.ExecuteStop()
	case "PAUSE":
		hookErr = s.rco.ExecutePause()
	case "RESUME":
		hookErr = s.rco.ExecuteResume()
	case "EXIT":
		hookErr = s.rco.ExecuteExit()
	}

	if hookErr == 0 {
		if err := s.sm.Event(context.Background(), event); err != nil {
			// The table accepted the event a moment ago and we hold the
			// lock, so this cannot be a transition conflict.
			log.WithError(err).
				WithField("event", event).
				Error("state machine rejected validated event")
			newState = ERROR
		} else {
			newState = s.currentState()
		}
		s.updateState(newState)
	} else {
		log.WithField("event", event).
			WithField("errorCode", hookErr).
			WithField("task", s.rco.Name()).
			Error("transition hook failed")
		newState = ERROR
		s.updateState(ERROR)
	}

	log.WithFields(logrus.Fields{
		"task":     s.rco.Name(),
		"event":    event,
		"newState": newState.String(),
	}).Info("transition event processed")

	return newState
}

// StateStream implements the StateStream RPC. Every state change is
// delivered in observation order; the stream closes itself with a
// final reply once the terminal state goes by.
func (s *Server) StateStream(_ *pb.StateStreamRequest, srv pb.Occ_StateStreamServer) error {
	id, queue := s.stateSubs.Subscribe("StateStream")
	defer s.stateSubs.Unsubscribe(id)

	for {
		select {
		case newState, ok := <-queue:
			if !ok {
				return nil
			}
			rep := &pb.StateStreamReply{
				Type:  pb.StateType_STATE_STABLE,
				State: newState.String(),
			}
			if err := srv.Send(rep); err != nil {
				// Caller went away; the deferred unsubscribe cleans up.
				return nil
			}
			if newState == DONE {
				return nil
			}
		case <-srv.Context().Done():
			return nil
		}
	}
}

// EventStream implements the EventStream RPC. A NULL_DEVICE_EVENT is
// the end-of-stream marker pushed when the machine reaches DONE.
func (s *Server) EventStream(_ *pb.EventStreamRequest, srv pb.Occ_EventStreamServer) error {
	id, queue := s.eventSubs.Subscribe("EventStream")
	defer s.eventSubs.Unsubscribe(id)

	for {
		select {
		case event, ok := <-queue:
			if !ok {
				return nil
			}
			rep := &pb.EventStreamReply{Event: event}
			if err := srv.Send(rep); err != nil {
				return nil
			}
			if event.GetType() == pb.DeviceEventType_NULL_DEVICE_EVENT {
				return nil
			}
		case <-srv.Context().Done():
			return nil
		}
	}
}

// runChecker is the supervisor loop: it drives the periodic hooks and
// watches for the terminal state until Destroy is called.
func (s *Server) runChecker() {
	defer close(s.checkerStopped)

	endOfData := false
	for !s.destroying.Load() {
		s.mu.Lock()

		currentState := s.currentState()
		if currentState == DONE {
			s.machineDone = true
		}

		// Periodic actions of the running state.
		if currentState == RUNNING && !endOfData {
			err := s.rco.IterateRunning()
			if err == 1 {
				endOfData = true
				s.pushEvent(&pb.DeviceEvent{Type: pb.DeviceEventType_END_OF_STREAM})
			} else if err != 0 {
				log.WithField("errorCode", err).
					WithField("task", s.rco.Name()).
					Error("running iteration failed")
				s.updateState(ERROR)
			}
		}

		// Periodic health check, in any state but ERROR: a task that
		// already took the machine down must not keep re-triggering
		// the same transition.
		if s.currentState() != ERROR {
			err := s.rco.IterateCheck()
			if err != 0 {
				log.WithField("errorCode", err).
					WithField("task", s.rco.Name()).
					Error("health check failed")
				s.updateState(ERROR)
				s.pushEvent(&pb.DeviceEvent{Type: pb.DeviceEventType_TASK_INTERNAL_ERROR})
			}
		}

		s.mu.Unlock()

		if !s.destroying.Load() {
			time.Sleep(checkerInterval)
		}
	}
}
