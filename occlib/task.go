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

// RunNumber identifies a data taking run. It is pushed by the control
// agent immediately before every START, and stays valid until the next
// one comes in.
type RunNumber uint32

const RunNumberUndefined RunNumber = 0

// RuntimeControlledObject is the capability set a task must provide in
// order to be driven by an OccServer. Implementers embed TaskBase and
// override the hooks they care about.
//
// Only one hook runs at any given time: transition hooks and the
// periodic hooks (IterateRunning, IterateCheck) are serialized by the
// server, so a slow ExecuteConfigure also delays the checker loop. A
// non-zero return from any transition hook immediately moves the
// machine to ERROR.
type RuntimeControlledObject interface {
	// ExecuteConfigure moves the task from standby to configured. The
	// properties map carries deployment-specific configuration pushed
	// by the control agent, in insertion order.
	ExecuteConfigure(properties PropertyMap) int
	// ExecuteReset moves the task from configured back to standby. It
	// should drop all configuration acquired in ExecuteConfigure.
	ExecuteReset() int
	// ExecuteRecover attempts to leave the error state towards standby.
	ExecuteRecover() int
	// ExecuteStart initiates the data flow. Once it returns 0 the task
	// is running and IterateRunning is called periodically.
	ExecuteStart() int
	// ExecuteStop terminates the data flow, from running or paused.
	ExecuteStop() int
	// ExecutePause suspends periodic IterateRunning calls without
	// touching the configuration.
	ExecutePause() int
	// ExecuteResume resumes data processing after a pause.
	ExecuteResume() int
	// ExecuteExit releases all resources in preparation for process
	// exit, from standby, configured or error.
	ExecuteExit() int

	// IterateRunning drives the data processing, called continuously
	// while RUNNING. Return 0 to keep going, 1 to declare end of
	// stream, anything else to go to ERROR.
	IterateRunning() int
	// IterateCheck is the periodic health check, called continuously
	// in every state except ERROR. A non-zero return moves the machine
	// to ERROR.
	IterateCheck() int

	Name() string
	Identity() *TaskIdentity
}

// TaskIdentity carries the name, role and current run number of a
// controlled task. Name is set at construction and never changes; Role
// is resolved once from program argument or environment; RunNumber is
// rewritten by the server on every transition request.
type TaskIdentity struct {
	name      string
	role      string
	runNumber RunNumber
}

func (t *TaskIdentity) Role() string {
	if t == nil {
		return ""
	}
	return t.role
}

func (t *TaskIdentity) RunNumber() RunNumber {
	if t == nil {
		return RunNumberUndefined
	}
	return t.runNumber
}

func (t *TaskIdentity) setRunNumber(rn RunNumber) {
	t.runNumber = rn
}

// TaskBase provides the identity plumbing and no-op defaults for all
// hooks, so implementers only write the transitions they need. The
// zero value is not usable, construct with NewTaskBase.
type TaskBase struct {
	identity TaskIdentity
}

// NewTaskBase creates the embeddable task core. The name should be
// alphanumeric, as it is a potentially user-visible string identifying
// the program; it does not have to be unique to this instance.
func NewTaskBase(name string) TaskBase {
	return TaskBase{
		identity: TaskIdentity{
			name:      name,
			role:      Role(),
			runNumber: RunNumberUndefined,
		},
	}
}

func (t *TaskBase) Name() string {
	return t.identity.name
}

func (t *TaskBase) Identity() *TaskIdentity {
	return &t.identity
}

func (t *TaskBase) ExecuteConfigure(_ PropertyMap) int { return 0 }
func (t *TaskBase) ExecuteReset() int                  { return 0 }
func (t *TaskBase) ExecuteRecover() int                { return 0 }
func (t *TaskBase) ExecuteStart() int                  { return 0 }
func (t *TaskBase) ExecuteStop() int                   { return 0 }
func (t *TaskBase) ExecutePause() int                  { return 0 }
func (t *TaskBase) ExecuteResume() int                 { return 0 }
func (t *TaskBase) ExecuteExit() int                   { return 0 }
func (t *TaskBase) IterateRunning() int                { return 0 }
func (t *TaskBase) IterateCheck() int                  { return 0 }
