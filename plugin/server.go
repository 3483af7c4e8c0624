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

package plugin

import (
	"context"
	"os"
	"sync"

	"github.com/AliceO2Group/occ/occlib"
	pb "github.com/AliceO2Group/occ/protos"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes the mirrored device state machine over the OCC
// control protocol. The mutex serializes GetState and Transition; the
// streaming handlers observe the device directly through their own
// subscriptions and take no lock.
type Server struct {
	mu sync.Mutex
	dc DeviceController
}

func NewServer(dc DeviceController) *Server {
	return &Server{dc: dc}
}

// GetState implements the GetState RPC for the proxy variant: the
// reported state is the device's own.
func (s *Server) GetState(_ context.Context, _ *pb.GetStateRequest) (*pb.GetStateReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &pb.GetStateReply{
		State: s.dc.CurrentDeviceState(),
		Pid:   int32(os.Getpid()),
	}, nil
}

// Transition implements the Transition RPC by relaying the event to
// the device runtime and waiting for settlement.
func (s *Server) Transition(_ context.Context, req *pb.TransitionRequest) (*pb.TransitionReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "null request received")
	}
	return doTransition(s.dc, req)
}

// StateStream implements the StateStream RPC: every device state
// change is forwarded, marked stable or intermediate, until the device
// exits. The device subscription is released on every exit path.
func (s *Server) StateStream(_ *pb.StateStreamRequest, srv pb.Occ_StateStreamServer) error {
	notify := make(chan string, 64)

	id := occlib.GenerateSubscriptionId("StateStream")
	err := s.dc.SubscribeToDeviceStateChange(id, func(state string) {
		select {
		case notify <- state:
		default:
		}
	})
	if err != nil {
		return status.Error(codes.Internal, "cannot observe device state")
	}
	defer s.dc.UnsubscribeFromDeviceStateChange(id)

	for {
		select {
		case state := <-notify:
			sType := pb.StateType_STATE_STABLE
			if IsIntermediateDeviceState(state) {
				sType = pb.StateType_STATE_INTERMEDIATE
			}
			log.WithField("state", state).
				WithField("type", sType.String()).
				Debug("StateStream new state")

			rep := &pb.StateStreamReply{
				Type:  sType,
				State: state,
			}
			if state == DeviceExiting {
				// Last write before shutdown, the error no longer matters.
				_ = srv.Send(rep)
				return nil
			}
			if sendErr := srv.Send(rep); sendErr != nil {
				return nil
			}
		case <-srv.Context().Done():
			return nil
		}
	}
}

// EventStream implements the EventStream RPC: the stream idles until
// the device exits, then closes with a null event.
func (s *Server) EventStream(_ *pb.EventStreamRequest, srv pb.Occ_EventStreamServer) error {
	notify := make(chan string, 64)

	id := occlib.GenerateSubscriptionId("EventStream")
	err := s.dc.SubscribeToDeviceStateChange(id, func(state string) {
		select {
		case notify <- state:
		default:
		}
	})
	if err != nil {
		return status.Error(codes.Internal, "cannot observe device state")
	}
	defer s.dc.UnsubscribeFromDeviceStateChange(id)

	for {
		select {
		case state := <-notify:
			log.WithField("state", state).Debug("EventStream new state")
			if state == DeviceExiting {
				rep := &pb.EventStreamReply{
					Event: &pb.DeviceEvent{Type: pb.DeviceEventType_NULL_DEVICE_EVENT},
				}
				_ = srv.Send(rep)
				return nil
			}
		case <-srv.Context().Done():
			return nil
		}
	}
}
