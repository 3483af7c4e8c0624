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

package occlib

import (
	"fmt"
	"net"
	"strconv"
	"time"

	pb "github.com/AliceO2Group/occ/protos"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

const (
	// OccDefaultPort is the fallback value for the control port.
	OccDefaultPort = 47100
	// OccControlPortArg is the program argument for the control port.
	OccControlPortArg = "control-port"
	// OccControlPortEnv is the environment variable queried for the
	// control port when no argument is given.
	OccControlPortEnv = "OCC_CONTROL_PORT"
	// OccRoleArg is the program argument for the task role.
	OccRoleArg = "role"
	// OccRoleEnv is the environment variable queried for the role.
	OccRoleEnv = "OCC_ROLE"

	occDefaultRole = "default"
)

func init() {
	_ = viper.BindEnv(OccControlPortArg, OccControlPortEnv)
	_ = viper.BindEnv(OccRoleArg, OccRoleEnv)
	viper.SetDefault(OccRoleArg, occDefaultRole)
}

// ProgramOptions registers the OCC command line options on the given
// flag set and binds them to the configuration store. Environment
// variables OCC_CONTROL_PORT and OCC_ROLE act as fallback when the
// arguments are absent.
func ProgramOptions(fs *pflag.FlagSet) {
	fs.String(OccControlPortArg, "", "Port on which the gRPC service will accept connections.")
	fs.String(OccRoleArg, "", "Role of this task, for orchestrator-side disambiguation.")
	_ = viper.BindPFlag(OccControlPortArg, fs.Lookup(OccControlPortArg))
	_ = viper.BindPFlag(OccRoleArg, fs.Lookup(OccRoleArg))
}

// ControlPort resolves the control port from argument, environment or
// default, in that order. A present but unparsable value is fatal, as
// running on an unintended port would leave the task undriveable.
func ControlPort() int {
	portStr := viper.GetString(OccControlPortArg)
	if len(portStr) == 0 {
		log.WithField("port", OccDefaultPort).
			Debug("no control port configured, using default")
		return OccDefaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.WithError(err).
			WithField("argument", OccControlPortArg).
			Fatal("bad program argument")
	}
	return port
}

// Role resolves the role from argument, environment or default.
func Role() string {
	role := viper.GetString(OccRoleArg)
	if len(role) == 0 {
		return occDefaultRole
	}
	return role
}

// OccInstance owns the gRPC server of a controlled task. Construction
// starts serving immediately; the typical embedding main then calls
// Wait followed by Teardown.
type OccInstance struct {
	service    *Server
	grpcServer *grpc.Server
}

// NewOccInstance starts the control service for the given task on
// 0.0.0.0:<controlPort>. Passing controlPort 0 resolves the port from
// program argument, environment or default.
func NewOccInstance(rco RuntimeControlledObject, controlPort int) (*OccInstance, error) {
	if controlPort == 0 {
		controlPort = ControlPort()
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", controlPort))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on control port %d: %w", controlPort, err)
	}

	o := &OccInstance{
		service:    NewServer(rco),
		grpcServer: grpc.NewServer(),
	}
	pb.RegisterOccServer(o.grpcServer, o.service)

	go func() {
		if serveErr := o.grpcServer.Serve(lis); serveErr != nil {
			log.WithError(serveErr).Error("gRPC server stopped")
		}
	}()
	log.WithField("port", controlPort).
		WithField("role", rco.Identity().Role()).
		WithField("task", rco.Name()).
		Info("gRPC server listening")
	return o, nil
}

// Wait blocks until the state machine reaches its terminal state.
func (o *OccInstance) Wait() {
	for !o.service.CheckMachineDone() {
		time.Sleep(2 * time.Millisecond)
	}
}

// Teardown stops the gRPC server and the checker loop. Pending streams
// are closed with the server.
func (o *OccInstance) Teardown() {
	o.grpcServer.Stop()
	o.service.Destroy()
}
