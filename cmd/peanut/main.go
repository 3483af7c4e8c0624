/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2019-2023 CERN and copyright holders of ALICE O².
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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/AliceO2Group/occ/common/controlmode"
	"github.com/AliceO2Group/occ/peanut"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	// The UI owns the terminal, logs would tear it up.
	log.SetOutput(os.Stderr)
	log.SetLevel(log.ErrorLevel)

	fs := pflag.NewFlagSet("peanut", pflag.ExitOnError)
	controlPort := fs.Uint64("control-port", 0, "Control port of the task to attach to.")
	mode := fs.String("mode", "direct", "Control mode of the task, direct or device.")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: peanut [flags] [command ...]\n\n"+
			"If a command is given, peanut launches it with OCC_CONTROL_PORT set\n"+
			"and attaches to it; otherwise it attaches to an already running task.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	var cm controlmode.ControlMode
	_ = cm.UnmarshalText([]byte(*mode))

	cmdString := strings.Join(fs.Args(), " ")
	if err := peanut.Run(cmdString, *controlPort, cm); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
