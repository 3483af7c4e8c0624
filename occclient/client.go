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

// Package occclient contains the gRPC client for the OCC control
// protocol, as well as facilities for processing and committing
// transition events against a controlled task.
package occclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/k0kubun/pp"
	"google.golang.org/grpc"

	"github.com/AliceO2Group/occ/common/controlmode"
	"github.com/AliceO2Group/occ/common/logger"
	"github.com/AliceO2Group/occ/occclient/transitioner"
	pb "github.com/AliceO2Group/occ/protos"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/status"
)

var log = logger.New(logrus.StandardLogger(), "occclient")

const dialTimeout = 20 * time.Second

// NewClient dials the control endpoint of a task and returns a ready
// client, or nil if the endpoint cannot be reached within the dial
// timeout. The control mode picks the transitioner that translates
// task events into wire transitions.
func NewClient(controlPort uint64, controlMode controlmode.ControlMode) *RpcClient {
	endpoint := fmt.Sprintf("127.0.0.1:%d", controlPort)

	log.WithField("endpoint", endpoint).
		Debug("starting new gRPC client")

	cxt, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	conn, err := grpc.DialContext(cxt, endpoint, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		log.WithField("error", err.Error()).
			WithField("endpoint", endpoint).
			Errorf("gRPC client can't dial")
		return nil
	}

	client := &RpcClient{
		OccClient: pb.NewOccClient(conn),
		conn:      conn,
	}

	log.WithFields(logrus.Fields{"endpoint": endpoint, "controlMode": controlMode.String()}).Debug("instantiating new transitioner")
	client.Transitioner = transitioner.NewTransitioner(controlMode, client.doTransition)
	return client
}

type RpcClient struct {
	pb.OccClient
	conn         *grpc.ClientConn
	Transitioner transitioner.Transitioner
}

func (r *RpcClient) Close() error {
	return r.conn.Close()
}

// FromDeviceState translates a state name reported by the task into
// the orchestrator's vocabulary.
func (r *RpcClient) FromDeviceState(state string) string {
	return r.Transitioner.FromDeviceState(state)
}

func (r *RpcClient) doTransition(ei transitioner.EventInfo) (newState string, err error) {
	log.WithField("event", ei.Evt).
		Debug("client requesting transition")

	var response *pb.TransitionReply

	argsToPush := func() (cfg []*pb.ConfigEntry) {
		cfg = make([]*pb.ConfigEntry, 0)
		if len(ei.Args) == 0 {
			return
		}
		for k, v := range ei.Args {
			cfg = append(cfg, &pb.ConfigEntry{Key: k, Value: v})
			log.WithField("key", k).
				WithField("value", v).
				Debug("pushing argument")
		}
		return
	}()

	response, err = r.Transition(context.TODO(), &pb.TransitionRequest{
		TransitionEvent: ei.Evt,
		Arguments:       argsToPush,
		SrcState:        ei.Src,
	})

	if err != nil {
		// We must unwrap the gRPC status explicitly, a raw err carries
		// no code or message for the caller.
		grpcStatus, ok := status.FromError(err)
		if ok {
			log.WithFields(logrus.Fields{
				"code":     grpcStatus.Code().String(),
				"message":  grpcStatus.Message(),
				"details":  grpcStatus.Details(),
				"error":    grpcStatus.Err().Error(),
				"ppStatus": pp.Sprint(grpcStatus),
				"ppErr":    pp.Sprint(err),
			}).
				Error("transition call error")
			err = fmt.Errorf("occ service returned %s: %s", grpcStatus.Code().String(), grpcStatus.Message())
		} else {
			err = errors.New("invalid gRPC status")
			log.WithField("error", "invalid gRPC status").Error("transition call error")
		}
		return
	}

	if response != nil &&
		response.GetOk() &&
		response.GetTrigger() == pb.StateChangeTrigger_EXECUTOR &&
		response.GetTransitionEvent() == ei.Evt &&
		response.GetState() == ei.Dst {
		newState = response.GetState()
		err = nil
	} else if response != nil {
		newState = response.GetState()
		err = fmt.Errorf("transition unsuccessful: ok: %s, trigger: %s, event: %s, state: %s",
			strconv.FormatBool(response.GetOk()),
			response.GetTrigger().String(),
			response.GetTransitionEvent(),
			response.GetState())
	} else {
		newState = ""
		err = errors.New("transition unsuccessful: invalid response but no gRPC error")
	}
	return
}
