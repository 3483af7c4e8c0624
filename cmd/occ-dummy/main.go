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

// occ-dummy is a minimal controllable process for exercising the OCC
// control protocol. It logs every lifecycle hook, and the data
// processing is a counter ticking once per period.
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/AliceO2Group/occ/common/logger"
	"github.com/AliceO2Group/occ/common/logger/infologger"
	"github.com/AliceO2Group/occ/occlib"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/teo/logrus-prefixed-formatter"
)

func init() {
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
		SpacePadding:  20,
		PrefixPadding: 12,

		// Needed for colored stdout/stderr in GoLand, IntelliJ, etc.
		ForceColors:     true,
		ForceFormatting: true,
	})
}

var log = logger.New(logrus.StandardLogger(), "occ-dummy")

type dummyTask struct {
	occlib.TaskBase

	period        time.Duration
	maxIterations int
	iterations    int
}

func newDummyTask() *dummyTask {
	return &dummyTask{
		TaskBase: occlib.NewTaskBase("occ-dummy"),
		period:   500 * time.Millisecond,
	}
}

func (t *dummyTask) ExecuteConfigure(properties occlib.PropertyMap) int {
	for _, entry := range properties {
		log.WithField("key", entry.Key).
			WithField("value", entry.Value).
			Info("property received")
	}

	if periodStr := properties.GetString("period", ""); len(periodStr) > 0 {
		period, err := time.ParseDuration(periodStr)
		if err != nil {
			log.WithError(err).Error("bad period property")
			return 1
		}
		t.period = period
	}
	if maxStr := properties.GetString("maxIterations", ""); len(maxStr) > 0 {
		max, err := strconv.Atoi(maxStr)
		if err != nil {
			log.WithError(err).Error("bad maxIterations property")
			return 1
		}
		t.maxIterations = max
	}

	log.WithField("period", t.period).Info("configured")
	return 0
}

func (t *dummyTask) ExecuteReset() int {
	t.period = 500 * time.Millisecond
	t.maxIterations = 0
	log.Info("reset")
	return 0
}

func (t *dummyTask) ExecuteStart() int {
	t.iterations = 0
	log.WithField("runNumber", t.Identity().RunNumber()).Info("run starting")
	return 0
}

func (t *dummyTask) ExecuteStop() int {
	log.WithField("iterations", t.iterations).Info("run stopped")
	return 0
}

func (t *dummyTask) ExecuteExit() int {
	log.Info("exiting")
	return 0
}

func (t *dummyTask) IterateRunning() int {
	time.Sleep(t.period)
	t.iterations++
	log.WithField("iteration", t.iterations).Debug("tick")

	if t.maxIterations > 0 && t.iterations >= t.maxIterations {
		log.Info("data stream exhausted")
		return 1
	}
	return 0
}

func main() {
	logrus.SetLevel(logrus.DebugLevel)

	fs := pflag.NewFlagSet("occ-dummy", pflag.ExitOnError)
	occlib.ProgramOptions(fs)
	_ = fs.Parse(os.Args[1:])

	// Best effort: without a local infoLoggerD we just log to stdout.
	if ilHook, err := infologger.NewDirectHookWithRole("OCC", "occ-dummy", occlib.Role(), logrus.AllLevels); err == nil {
		logrus.AddHook(ilHook)
	}

	instance, err := occlib.NewOccInstance(newDummyTask(), 0)
	if err != nil {
		log.WithError(err).Fatal("cannot start control service")
	}
	instance.Wait()
	instance.Teardown()
	log.Info("occ-dummy exiting")
}
