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
	"fmt"
	"net"

	"github.com/AliceO2Group/occ/occlib"
	pb "github.com/AliceO2Group/occ/protos"
	"google.golang.org/grpc"
)

// OccPlugin hooks the OCC control service into an externally managed
// device runtime. Construction takes device control and starts serving
// immediately.
type OccPlugin struct {
	dc         DeviceController
	grpcServer *grpc.Server
}

// NewOccPlugin takes control of the device and starts the control
// service on 0.0.0.0:<controlPort>. Passing controlPort 0 resolves the
// port from program argument, environment or default. Failure to take
// device control is not fatal: another controller may hand it back
// later, and ChangeDeviceState reports the condition per call.
func NewOccPlugin(dc DeviceController, controlPort int) (*OccPlugin, error) {
	if controlPort == 0 {
		controlPort = occlib.ControlPort()
	}

	if err := dc.TakeDeviceControl(ControllerName); err != nil {
		log.WithError(err).Error("cannot take device control")
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", controlPort))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on control port %d: %w", controlPort, err)
	}

	o := &OccPlugin{
		dc:         dc,
		grpcServer: grpc.NewServer(),
	}
	pb.RegisterOccServer(o.grpcServer, NewServer(dc))

	go func() {
		if serveErr := o.grpcServer.Serve(lis); serveErr != nil {
			log.WithError(serveErr).Error("gRPC server stopped")
		}
	}()
	log.WithField("port", controlPort).Info("OCC plugin listening")
	return o, nil
}

// Teardown stops the control service and hands device control back to
// the runtime.
func (o *OccPlugin) Teardown() {
	o.grpcServer.Stop()
	if err := o.dc.ReleaseDeviceControl(ControllerName); err != nil {
		log.WithError(err).Debug("device control already released")
	}
}
