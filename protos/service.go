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

package pb

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "occ_pb.Occ"

// OccServer is the server API for the Occ service.
type OccServer interface {
	// EventStream returns a stream of DeviceEvents published by the
	// controlled task, and stays open until the task reaches its
	// terminal state.
	EventStream(*EventStreamRequest, Occ_EventStreamServer) error
	// StateStream returns a stream of state changes, and stays open
	// until the task reaches its terminal state.
	StateStream(*StateStreamRequest, Occ_StateStreamServer) error
	// GetState returns the current state of the controlled state machine.
	GetState(context.Context, *GetStateRequest) (*GetStateReply, error)
	// Transition requests a state transition and blocks until the
	// machine has settled in a stable state.
	Transition(context.Context, *TransitionRequest) (*TransitionReply, error)
}

func RegisterOccServer(s *grpc.Server, srv OccServer) {
	s.RegisterService(&Occ_ServiceDesc, srv)
}

type Occ_EventStreamServer interface {
	Send(*EventStreamReply) error
	grpc.ServerStream
}

type occEventStreamServer struct {
	grpc.ServerStream
}

func (x *occEventStreamServer) Send(m *EventStreamReply) error {
	return x.ServerStream.SendMsg(m)
}

type Occ_StateStreamServer interface {
	Send(*StateStreamReply) error
	grpc.ServerStream
}

type occStateStreamServer struct {
	grpc.ServerStream
}

func (x *occStateStreamServer) Send(m *StateStreamReply) error {
	return x.ServerStream.SendMsg(m)
}

func _Occ_EventStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(EventStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OccServer).EventStream(m, &occEventStreamServer{stream})
}

func _Occ_StateStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(StateStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OccServer).StateStream(m, &occStateStreamServer{stream})
}

func _Occ_GetState_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OccServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetState",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OccServer).GetState(ctx, req.(*GetStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Occ_Transition_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TransitionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OccServer).Transition(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/Transition",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OccServer).Transition(ctx, req.(*TransitionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Occ_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OccServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetState",
			Handler:    _Occ_GetState_Handler,
		},
		{
			MethodName: "Transition",
			Handler:    _Occ_Transition_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "EventStream",
			Handler:       _Occ_EventStream_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "StateStream",
			Handler:       _Occ_StateStream_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "protos/occ.proto",
}
